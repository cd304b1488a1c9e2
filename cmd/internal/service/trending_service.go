package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/filter"
	"circlenotes/cmd/internal/infrastructure/ranking"
	"circlenotes/cmd/internal/utils/apierror"
	"circlenotes/cmd/internal/utils/uid"

	"github.com/labstack/gommon/log"
)

// Signal is one family of interaction counters.
type Signal string

const (
	SignalLikes  Signal = "likes"
	SignalStocks Signal = "stocks"
	SignalViews  Signal = "views"
)

const (
	// CounterTTL is refreshed on every change of a daily bucket.
	CounterTTL = 30 * 24 * time.Hour

	recordTimeout = 250 * time.Millisecond

	DefaultTrendingCount = 20
	trendingOverfetch    = 2
	dayLayout            = "2006-01-02"
)

// Decay shapes the weight of a daily bucket: base + growth * rate^(N-1-age).
type Decay struct {
	Base   float64
	Growth float64
	Rate   float64
}

// Window aggregates the last Days daily buckets into Dest.
type Window struct {
	Period contract.TrendingPeriod
	Dest   string
	Days   int
	Decays map[Signal]Decay
}

var (
	WeeklyWindow = Window{
		Period: contract.TrendingWeekly,
		Dest:   "trending/weekly",
		Days:   7,
		Decays: map[Signal]Decay{
			SignalLikes:  {Base: 1.0, Growth: 0.5, Rate: 1.21},
			SignalStocks: {Base: 2.0, Growth: 1.0, Rate: 1.21},
			SignalViews:  {Base: 0.1, Growth: 0.05, Rate: 1.21},
		},
	}

	MonthlyWindow = Window{
		Period: contract.TrendingMonthly,
		Dest:   "trending/monthly",
		Days:   28,
		Decays: map[Signal]Decay{
			SignalLikes:  {Base: 1.0, Growth: 0.3, Rate: 1.07},
			SignalStocks: {Base: 2.0, Growth: 0.6, Rate: 1.06},
			SignalViews:  {Base: 0.1, Growth: 0.03, Rate: 1.05},
		},
	}

	signals = []Signal{SignalLikes, SignalStocks, SignalViews}
)

// Weight of the bucket age days old in a window of n days. Age 0 is today
// and weighs the most.
func (d Decay) Weight(age, n int) float64 {
	return d.Base + d.Growth*math.Pow(d.Rate, float64(n-1-age))
}

// DailyKey names the ranked set of one signal on one UTC day.
func DailyKey(signal Signal, day time.Time) string {
	return fmt.Sprintf("trending:%s:%s", signal, day.UTC().Format(dayLayout))
}

type TrendingItemRepository interface {
	FindAllInIDs(ctx context.Context, ids []int64, where filter.Expr) ([]*entity.Item, error)
}

type TrendingService struct {
	store ranking.Store
	items TrendingItemRepository
	now   func() time.Time
}

func NewTrendingService(store ranking.Store, items TrendingItemRepository) *TrendingService {
	return &TrendingService{
		store: store,
		items: items,
		now:   time.Now,
	}
}

// Record shifts today's counter of signal for the item by delta.
func (t *TrendingService) Record(ctx context.Context, signal Signal, itemID int64, delta float64) error {
	key := DailyKey(signal, t.now())
	if _, err := t.store.IncrBy(ctx, key, uid.Format(itemID), delta); err != nil {
		return err
	}
	return t.store.Expire(ctx, key, CounterTTL)
}

// recordBestEffort records inline on request paths. The store gets at most
// recordTimeout and failures are only logged. A nil service records nothing.
func (t *TrendingService) recordBestEffort(ctx context.Context, signal Signal, itemID int64, delta float64) {
	if t == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if err := t.Record(ctx, signal, itemID, delta); err != nil {
		log.Errorf("failed to record %s %+v for item %d: %v", signal, delta, itemID, err)
	}
}

// Aggregate recomputes the ranked set of window from the daily buckets.
// Runs fully overwrite the destination, so repeated runs are idempotent.
func (t *TrendingService) Aggregate(ctx context.Context, w Window) error {
	today := t.now().UTC()
	keys := make([]ranking.WeightedKey, 0, len(signals)*w.Days)

	for _, signal := range signals {
		decay := w.Decays[signal]
		for age := 0; age < w.Days; age++ {
			keys = append(keys, ranking.WeightedKey{
				Key:    DailyKey(signal, today.AddDate(0, 0, -age)),
				Weight: decay.Weight(age, w.Days),
			})
		}
	}

	if err := t.store.UnionStore(ctx, w.Dest, keys); err != nil {
		return fmt.Errorf("failed to aggregate %s trending: %w", w.Period, err)
	}
	return nil
}

func (t *TrendingService) AggregateAll(ctx context.Context) error {
	for _, w := range []Window{WeeklyWindow, MonthlyWindow} {
		if err := t.Aggregate(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// Trending returns up to count items of the period readable by actor, in
// ranked order.
func (t *TrendingService) Trending(ctx context.Context, actor *entity.User, period contract.TrendingPeriod, count int) ([]*contract.ItemResponse, apierror.ErrorResponse) {
	w, ok := windowOf(period)
	if !ok {
		return nil, apierror.InvalidPeriodError
	}

	if count <= 0 {
		count = DefaultTrendingCount
	}

	entries, err := t.store.Top(ctx, w.Dest, count*trendingOverfetch)
	if err != nil {
		log.Errorf("failed to read %s trending: %v", period, err)
		return nil, apierror.InternalServerError
	}

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		id, err := strconv.ParseInt(e.Member, 10, 64)
		if err != nil {
			log.Warnf("skipping malformed trending member %q", e.Member)
			continue
		}
		ids = append(ids, id)
	}

	items, err := t.items.FindAllInIDs(ctx, ids, publishedReadableBy(actor))
	if err != nil {
		log.Errorf("failed to hydrate trending items: %v", err)
		return nil, apierror.InternalServerError
	}

	ranked := inRankOrder(ids, items)
	if len(ranked) > count {
		ranked = ranked[:count]
	}

	resp := make([]*contract.ItemResponse, len(ranked))
	for i, item := range ranked {
		resp[i] = toItemResponse(item, nil)
	}
	return resp, nil
}

func windowOf(period contract.TrendingPeriod) (Window, bool) {
	switch period {
	case contract.TrendingWeekly:
		return WeeklyWindow, true
	case contract.TrendingMonthly:
		return MonthlyWindow, true
	}
	return Window{}, false
}

// inRankOrder arranges items in the order of ids, dropping ids without an item.
func inRankOrder(ids []int64, items []*entity.Item) []*entity.Item {
	byID := make(map[int64]*entity.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	out := make([]*entity.Item, 0, len(items))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			out = append(out, item)
			delete(byID, id)
		}
	}
	return out
}
