package service

import (
	"context"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/domain/database"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/events"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/apierror"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.User, error)
	FindByHandle(ctx context.Context, handle string) (*entity.User, error)
	HandleExists(ctx context.Context, handle string) (bool, error)
	Save(ctx context.Context, user *entity.User) error
}

type DefaultUserService struct {
	UserRepo  UserRepository
	Identity  *IdentityService
	WSService *WebSocketService
	Validate  *validator.Validate
}

func NewUserService(userRepo UserRepository, identity *IdentityService, wsService *WebSocketService, validate *validator.Validate) *DefaultUserService {
	return &DefaultUserService{
		UserRepo:  userRepo,
		Identity:  identity,
		WSService: wsService,
		Validate:  validate,
	}
}

// GetUser resolves "@me" to the actor, numeric ids and handles to active users.
func (u *DefaultUserService) GetUser(ctx context.Context, actor *entity.User, ref string) (*contract.UserResponse, apierror.ErrorResponse) {
	user, apierr := u.fetchUser(ctx, actor, ref)
	if apierr != nil {
		return nil, apierr
	}
	return toUserResponse(user), nil
}

func (u *DefaultUserService) UpdateSelf(ctx context.Context, actor *entity.User, req *contract.UpdateUserRequest) (*contract.UserResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if err := u.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	before := *actor
	dirty := false
	if req.Handle != nil && (actor.Handle == nil || *actor.Handle != *req.Handle) {
		taken, err := u.UserRepo.HandleExists(ctx, *req.Handle)
		if err != nil {
			log.Errorf("failed to check handle of user %d: %v", actor.ID, err)
			return nil, apierror.InternalServerError
		}

		if taken {
			return nil, apierror.HandleTakenError
		}

		handle := *req.Handle
		actor.Handle = &handle
		dirty = true
	}

	if req.DisplayName != nil && *req.DisplayName != actor.DisplayName {
		actor.DisplayName = *req.DisplayName
		dirty = true
	}

	if !dirty {
		return toUserResponse(actor), nil
	}

	actor.UpdatedAt = utils.NowUTC()
	if err := u.UserRepo.Save(ctx, actor); err != nil {
		*actor = before
		if database.IsDuplicate(err) {
			return nil, apierror.HandleTakenError
		}

		log.Errorf("failed to update user %d: %v", actor.ID, err)
		return nil, apierror.InternalServerError
	}

	u.Identity.Forget(actor.Subject)
	resp := toUserResponse(actor)
	if u.WSService != nil {
		go u.WSService.Dispatch(context.Background(), actor.ID, &events.UserUpdated{UserResponse: resp})
	}
	return resp, nil
}

// DeleteSelf soft deletes the actor, releasing the handle and closing every
// realtime session.
func (u *DefaultUserService) DeleteSelf(ctx context.Context, actor *entity.User) apierror.ErrorResponse {
	now := utils.NowUTC()
	actor.Status = entity.UserStatusDeleted
	actor.Handle = nil
	actor.DeletedAt = &now
	actor.UpdatedAt = now

	if err := u.UserRepo.Save(ctx, actor); err != nil {
		log.Errorf("failed to delete user %d: %v", actor.ID, err)
		return apierror.InternalServerError
	}

	u.Identity.Forget(actor.Subject)
	if u.WSService != nil {
		reason := "account deleted"
		go u.WSService.TerminateUserConnections(context.Background(), actor.ID, &events.ConnectionKill{
			Code:   contract.KillCodeAccountDeleted,
			Reason: &reason,
		})
	}
	return nil
}

func (u *DefaultUserService) fetchUser(ctx context.Context, actor *entity.User, ref string) (*entity.User, apierror.ErrorResponse) {
	if ref == "@me" {
		if actor == nil {
			return nil, apierror.UnauthorizedError
		}
		return actor, nil
	}

	var (
		user *entity.User
		err  error
	)

	if id, ok := utils.ParseID(ref); ok {
		user, err = u.UserRepo.FindByID(ctx, id)
	} else {
		user, err = u.UserRepo.FindByHandle(ctx, ref)
	}

	if err != nil {
		log.Errorf("failed to find user %s: %v", ref, err)
		return nil, apierror.InternalServerError
	}

	if user == nil || !user.IsActive() {
		return nil, apierror.NotFoundError
	}
	return user, nil
}
