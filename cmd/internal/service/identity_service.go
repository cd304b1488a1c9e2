package service

import (
	"context"
	"errors"
	"time"

	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/infrastructure/aws/cognito"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/apierror"
	"circlenotes/cmd/internal/utils/uid"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/gommon/log"
)

const (
	identityCacheSize = 4096
	identityCacheTTL  = 60 * time.Second
)

type IdentityRepository interface {
	FindBySubject(ctx context.Context, sub string) (*entity.User, error)
	CreateIfNotExists(ctx context.Context, user *entity.User) (*entity.User, bool, error)
}

// Directory looks up profile attributes at the identity provider.
type Directory interface {
	Lookup(ctx context.Context, username string) (*cognito.Profile, error)
}

// IdentityService maps validated tokens to local users, provisioning
// subjects on their first request. Resolved users are cached per subject.
type IdentityService struct {
	users     IdentityRepository
	directory Directory
	cache     *expirable.LRU[string, entity.User]
}

// NewIdentityService builds the resolver. directory may be nil, in which
// case provisioning uses the token claims only.
func NewIdentityService(users IdentityRepository, directory Directory) *IdentityService {
	return &IdentityService{
		users:     users,
		directory: directory,
		cache:     expirable.NewLRU[string, entity.User](identityCacheSize, nil, identityCacheTTL),
	}
}

// Resolve returns the local user of the token. Permissions always follow
// the role claims of the current token.
func (s *IdentityService) Resolve(ctx context.Context, token *utils.TokenData) (*entity.User, apierror.ErrorResponse) {
	user, ok := s.cache.Get(token.Sub)
	if !ok {
		found, apierr := s.lookup(ctx, token)
		if apierr != nil {
			return nil, apierr
		}
		user = *found
		s.cache.Add(token.Sub, user)
	}

	if !user.IsActive() {
		return nil, apierror.InvalidAuthTokenError
	}

	user.Permissions = entity.PermissionsFromGroups(token.Groups)
	return &user, nil
}

// Forget drops the cached user of a subject.
func (s *IdentityService) Forget(sub string) {
	if s == nil {
		return
	}
	s.cache.Remove(sub)
}

func (s *IdentityService) lookup(ctx context.Context, token *utils.TokenData) (*entity.User, apierror.ErrorResponse) {
	user, err := s.users.FindBySubject(ctx, token.Sub)
	if err != nil {
		log.Errorf("failed to find user by subject %s: %v", token.Sub, err)
		return nil, apierror.InternalServerError
	}

	if user != nil {
		return user, nil
	}
	return s.provision(ctx, token)
}

func (s *IdentityService) provision(ctx context.Context, token *utils.TokenData) (*entity.User, apierror.ErrorResponse) {
	now := utils.NowUTC()
	user := &entity.User{
		ID:          uid.Generate(),
		Subject:     token.Sub,
		DisplayName: token.Username,
		Email:       token.Email,
		Status:      entity.UserStatusActive,
		Permissions: entity.PermissionsFromGroups(token.Groups),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if s.directory != nil && token.Username != "" {
		profile, err := s.directory.Lookup(ctx, token.Username)
		switch {
		case errors.Is(err, cognito.ErrUserNotFound):
			return nil, apierror.IDPUserNotFoundError
		case err != nil:
			log.Warnf("failed to look up %s in the user pool, using token claims: %v", token.Username, err)
		default:
			if !profile.Enabled {
				return nil, apierror.MissingAccessError
			}
			user.DisplayName = profile.DisplayName
			if profile.Email != "" {
				user.Email = profile.Email
			}
		}
	}

	stored, created, err := s.users.CreateIfNotExists(ctx, user)
	if err != nil {
		log.Errorf("failed to provision user for subject %s: %v", token.Sub, err)
		return nil, apierror.InternalServerError
	}

	if created {
		log.Infof("provisioned user %d for subject %s", stored.ID, token.Sub)
	}
	return stored, nil
}
