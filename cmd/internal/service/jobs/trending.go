package jobs

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"
)

const aggregateInterval = 10 * time.Minute

type TrendingAggregator interface {
	AggregateAll(ctx context.Context) error
}

// TrendingJob rebuilds the weekly and monthly rankings on a fixed interval.
// Every run overwrites the previous result.
type TrendingJob struct {
	aggregator TrendingAggregator
	interval   time.Duration
}

func NewTrendingJob(aggregator TrendingAggregator) *TrendingJob {
	return &TrendingJob{aggregator: aggregator, interval: aggregateInterval}
}

func (j *TrendingJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.Info("Trending aggregator started")
	j.run(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping trending aggregator...")
			return
		case <-ticker.C:
			j.run(ctx)
		}
	}
}

func (j *TrendingJob) run(ctx context.Context) {
	started := time.Now()
	if err := j.aggregator.AggregateAll(ctx); err != nil {
		log.Errorf("Trending: aggregation failed: %v", err)
		return
	}
	log.Debugf("Trending: aggregated in %s", time.Since(started))
}
