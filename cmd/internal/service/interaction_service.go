package service

import (
	"context"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/domain/database/repository"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/policy"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/apierror"
	"circlenotes/cmd/internal/utils/uid"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

type LikeRepository interface {
	CreateIfNotExists(ctx context.Context, like *entity.Like) (*entity.Like, bool, error)
	RemoveIfExists(ctx context.Context, userID, itemID int64) (*entity.Like, error)
}

type StockRepository interface {
	CreateIfNotExists(ctx context.Context, stock *entity.Stock) (*entity.Stock, bool, error)
	RemoveIfExists(ctx context.Context, userID, itemID int64) (*entity.Stock, error)
	FindItemIDsByUser(ctx context.Context, userID int64, page repository.Page) ([]int64, int64, error)
}

type FollowRepository interface {
	CreateIfNotExists(ctx context.Context, follow *entity.Follow) (*entity.Follow, bool, error)
	RemoveIfExists(ctx context.Context, followerID, followeeID int64) (*entity.Follow, error)
	FindFollowers(ctx context.Context, userID int64, page repository.Page) ([]*entity.User, int64, error)
}

// toggle describes one kind of item interaction.
type toggle struct {
	signal  Signal
	counter string
	count   func(*entity.Item) int64
	create  func(ctx context.Context, userID, itemID int64) (bool, error)
	remove  func(ctx context.Context, userID, itemID int64) (bool, error)
}

// DefaultInteractionService handles likes, stocks and follows. Relations
// are idempotent: counters and trending buckets only move when a relation
// was actually created or removed.
type DefaultInteractionService struct {
	ItemRepo   ItemRepository
	UserRepo   UserRepository
	LikeRepo   LikeRepository
	StockRepo  StockRepository
	FollowRepo FollowRepository
	Tx         Transactor
	Trending   *TrendingService
	ItemPolicy *policy.ItemPolicy
	Validate   *validator.Validate
}

func NewInteractionService(
	itemRepo ItemRepository,
	userRepo UserRepository,
	likeRepo LikeRepository,
	stockRepo StockRepository,
	followRepo FollowRepository,
	tx Transactor,
	trending *TrendingService,
	validate *validator.Validate,
) *DefaultInteractionService {
	return &DefaultInteractionService{
		ItemRepo:   itemRepo,
		UserRepo:   userRepo,
		LikeRepo:   likeRepo,
		StockRepo:  stockRepo,
		FollowRepo: followRepo,
		Tx:         tx,
		Trending:   trending,
		ItemPolicy: policy.NewItemPolicy(),
		Validate:   validate,
	}
}

func (s *DefaultInteractionService) likes() toggle {
	return toggle{
		signal:  SignalLikes,
		counter: repository.CounterLikes,
		count:   func(i *entity.Item) int64 { return i.LikeCount },
		create: func(ctx context.Context, userID, itemID int64) (bool, error) {
			_, created, err := s.LikeRepo.CreateIfNotExists(ctx, &entity.Like{
				ID:        uid.Generate(),
				UserID:    userID,
				ItemID:    itemID,
				CreatedAt: utils.NowUTC(),
			})
			return created, err
		},
		remove: func(ctx context.Context, userID, itemID int64) (bool, error) {
			removed, err := s.LikeRepo.RemoveIfExists(ctx, userID, itemID)
			return removed != nil, err
		},
	}
}

func (s *DefaultInteractionService) stocks() toggle {
	return toggle{
		signal:  SignalStocks,
		counter: repository.CounterStocks,
		count:   func(i *entity.Item) int64 { return i.StockCount },
		create: func(ctx context.Context, userID, itemID int64) (bool, error) {
			_, created, err := s.StockRepo.CreateIfNotExists(ctx, &entity.Stock{
				ID:        uid.Generate(),
				UserID:    userID,
				ItemID:    itemID,
				CreatedAt: utils.NowUTC(),
			})
			return created, err
		},
		remove: func(ctx context.Context, userID, itemID int64) (bool, error) {
			removed, err := s.StockRepo.RemoveIfExists(ctx, userID, itemID)
			return removed != nil, err
		},
	}
}

func (s *DefaultInteractionService) Like(ctx context.Context, actor *entity.User, itemID int64) (*contract.InteractionResponse, apierror.ErrorResponse) {
	return s.add(ctx, actor, itemID, s.likes())
}

func (s *DefaultInteractionService) Unlike(ctx context.Context, actor *entity.User, itemID int64) (*contract.InteractionResponse, apierror.ErrorResponse) {
	return s.drop(ctx, actor, itemID, s.likes())
}

func (s *DefaultInteractionService) Stock(ctx context.Context, actor *entity.User, itemID int64) (*contract.InteractionResponse, apierror.ErrorResponse) {
	return s.add(ctx, actor, itemID, s.stocks())
}

func (s *DefaultInteractionService) Unstock(ctx context.Context, actor *entity.User, itemID int64) (*contract.InteractionResponse, apierror.ErrorResponse) {
	return s.drop(ctx, actor, itemID, s.stocks())
}

func (s *DefaultInteractionService) add(ctx context.Context, actor *entity.User, itemID int64, t toggle) (*contract.InteractionResponse, apierror.ErrorResponse) {
	view, err := s.ItemRepo.FindView(ctx, itemID, actor.ID)
	if err != nil {
		log.Errorf("failed to fetch item %d: %v", itemID, err)
		return nil, apierror.InternalServerError
	}

	if apierr := s.ItemPolicy.CanInteract(view, actor); apierr != nil {
		return nil, apierr
	}

	created, apierr := s.apply(ctx, actor, itemID, t.counter, 1, t.create)
	if apierr != nil {
		return nil, apierr
	}

	count := t.count(view.Item)
	if created {
		count++
		s.Trending.recordBestEffort(ctx, t.signal, itemID, 1)
	}
	return &contract.InteractionResponse{ItemID: itemID, Active: true, Count: count}, nil
}

// drop only needs the item to be visible, so interactions with items that
// later stopped accepting them can still be withdrawn.
func (s *DefaultInteractionService) drop(ctx context.Context, actor *entity.User, itemID int64, t toggle) (*contract.InteractionResponse, apierror.ErrorResponse) {
	view, err := s.ItemRepo.FindView(ctx, itemID, actor.ID)
	if err != nil {
		log.Errorf("failed to fetch item %d: %v", itemID, err)
		return nil, apierror.InternalServerError
	}

	if apierr := s.ItemPolicy.CanSee(view, actor); apierr != nil {
		return nil, apierr
	}

	removed, apierr := s.apply(ctx, actor, itemID, t.counter, -1, t.remove)
	if apierr != nil {
		return nil, apierr
	}

	count := t.count(view.Item)
	if removed {
		count--
		s.Trending.recordBestEffort(ctx, t.signal, itemID, -1)
	}
	return &contract.InteractionResponse{ItemID: itemID, Active: false, Count: count}, nil
}

// apply runs the relation change and the counter shift in one transaction.
func (s *DefaultInteractionService) apply(
	ctx context.Context,
	actor *entity.User,
	itemID int64,
	counter string,
	delta int64,
	change func(ctx context.Context, userID, itemID int64) (bool, error),
) (bool, apierror.ErrorResponse) {
	var changed bool
	err := s.Tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		changed, err = change(ctx, actor.ID, itemID)
		if err != nil || !changed {
			return err
		}
		return s.ItemRepo.AddToCounter(ctx, itemID, counter, delta)
	})
	if err != nil {
		log.Errorf("failed to update %s of item %d: %v", counter, itemID, err)
		return false, apierror.InternalServerError
	}
	return changed, nil
}

// ListStocks lists the actor's stocked items that are still readable,
// most recently stocked first.
func (s *DefaultInteractionService) ListStocks(ctx context.Context, actor *entity.User, q *contract.PageQuery) (*contract.Page[*contract.ItemResponse], apierror.ErrorResponse) {
	if valerr := s.Validate.Struct(q); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	offset, limit := q.Window()
	ids, total, err := s.StockRepo.FindItemIDsByUser(ctx, actor.ID, repository.Page{Offset: offset, Limit: limit})
	if err != nil {
		log.Errorf("failed to list stocks of user %d: %v", actor.ID, err)
		return nil, apierror.InternalServerError
	}

	items, err := s.ItemRepo.FindAllInIDs(ctx, ids, publishedReadableBy(actor))
	if err != nil {
		log.Errorf("failed to hydrate stocks of user %d: %v", actor.ID, err)
		return nil, apierror.InternalServerError
	}
	return contract.NewPage(toItemResponses(inRankOrder(ids, items)), total, offset, limit), nil
}

func (s *DefaultInteractionService) Follow(ctx context.Context, actor *entity.User, followeeID int64) (*contract.FollowResponse, apierror.ErrorResponse) {
	if !actor.Permissions.HasEffective(entity.PermissionInteract) {
		return nil, apierror.NewPermissionError(int64(entity.PermissionInteract))
	}

	if actor.ID == followeeID {
		return nil, apierror.SelfFollowError
	}

	if apierr := s.requireActiveUser(ctx, followeeID); apierr != nil {
		return nil, apierr
	}

	_, _, err := s.FollowRepo.CreateIfNotExists(ctx, &entity.Follow{
		ID:         uid.Generate(),
		FollowerID: actor.ID,
		FolloweeID: followeeID,
		CreatedAt:  utils.NowUTC(),
	})
	if err != nil {
		log.Errorf("failed to follow user %d: %v", followeeID, err)
		return nil, apierror.InternalServerError
	}
	return &contract.FollowResponse{FolloweeID: followeeID, Following: true}, nil
}

func (s *DefaultInteractionService) Unfollow(ctx context.Context, actor *entity.User, followeeID int64) (*contract.FollowResponse, apierror.ErrorResponse) {
	if _, err := s.FollowRepo.RemoveIfExists(ctx, actor.ID, followeeID); err != nil {
		log.Errorf("failed to unfollow user %d: %v", followeeID, err)
		return nil, apierror.InternalServerError
	}
	return &contract.FollowResponse{FolloweeID: followeeID, Following: false}, nil
}

func (s *DefaultInteractionService) ListFollowers(ctx context.Context, userID int64, q *contract.PageQuery) (*contract.Page[*contract.UserResponse], apierror.ErrorResponse) {
	if valerr := s.Validate.Struct(q); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	if apierr := s.requireActiveUser(ctx, userID); apierr != nil {
		return nil, apierr
	}

	offset, limit := q.Window()
	users, total, err := s.FollowRepo.FindFollowers(ctx, userID, repository.Page{Offset: offset, Limit: limit})
	if err != nil {
		log.Errorf("failed to list followers of user %d: %v", userID, err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*contract.UserResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	return contract.NewPage(resp, total, offset, limit), nil
}

func (s *DefaultInteractionService) requireActiveUser(ctx context.Context, id int64) apierror.ErrorResponse {
	user, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		log.Errorf("failed to fetch user %d: %v", id, err)
		return apierror.InternalServerError
	}

	if user == nil || !user.IsActive() {
		return apierror.NotFoundError
	}
	return nil
}
