package service

import (
	"context"
	"errors"

	"circlenotes/cmd/internal/contract"
	"circlenotes/cmd/internal/domain/database"
	"circlenotes/cmd/internal/domain/database/repository"
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/filter"
	"circlenotes/cmd/internal/domain/policy"
	"circlenotes/cmd/internal/utils"
	"circlenotes/cmd/internal/utils/apierror"
	"circlenotes/cmd/internal/utils/uid"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

var errLastAdmin = errors.New("last admin of the container")

type ContainerRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.Container, error)
	FindByHandle(ctx context.Context, handle string) (*entity.Container, error)
	FindAll(ctx context.Context, where filter.Expr, page repository.Page) ([]*entity.Container, int64, error)
	HandleExists(ctx context.Context, handle string) (bool, error)
	Create(ctx context.Context, container *entity.Container) error
	Save(ctx context.Context, container *entity.Container) error
}

type MembershipRepository interface {
	Find(ctx context.Context, userID, containerID int64) (*entity.Membership, error)
	FindByContainer(ctx context.Context, containerID int64, page repository.Page) ([]*entity.Membership, int64, error)
	CountByRole(ctx context.Context, containerID int64, role entity.Role) (int64, error)
	CreateIfNotExists(ctx context.Context, membership *entity.Membership) (*entity.Membership, bool, error)
	RemoveIfExists(ctx context.Context, userID, containerID int64) (*entity.Membership, error)
}

// ContainerAccess loads containers together with the actor's membership.
type ContainerAccess struct {
	ContainerRepo  ContainerRepository
	MembershipRepo MembershipRepository
	Policy         *policy.ContainerPolicy
}

func NewContainerAccess(containerRepo ContainerRepository, membershipRepo MembershipRepository) *ContainerAccess {
	return &ContainerAccess{
		ContainerRepo:  containerRepo,
		MembershipRepo: membershipRepo,
		Policy:         policy.NewContainerPolicy(),
	}
}

func (a *ContainerAccess) view(ctx context.Context, actor *entity.User, container *entity.Container) (*policy.ContainerView, error) {
	if container == nil {
		return nil, nil
	}

	view := &policy.ContainerView{Container: container}
	if actor == nil {
		return view, nil
	}

	membership, err := a.MembershipRepo.Find(ctx, actor.ID, container.ID)
	if err != nil {
		return nil, err
	}

	if membership != nil {
		view.Memberships = []*entity.Membership{membership}
	}
	return view, nil
}

// ByHandle returns the active container with handle as seen by actor.
func (a *ContainerAccess) ByHandle(ctx context.Context, actor *entity.User, handle string) (*policy.ContainerView, apierror.ErrorResponse) {
	container, err := a.ContainerRepo.FindByHandle(ctx, handle)
	if err != nil {
		log.Errorf("failed to fetch container %s: %v", handle, err)
		return nil, apierror.InternalServerError
	}

	view, err := a.view(ctx, actor, container)
	if err != nil {
		log.Errorf("failed to fetch membership in container %s: %v", handle, err)
		return nil, apierror.InternalServerError
	}

	if apierr := a.Policy.CanSee(view); apierr != nil {
		return nil, apierr
	}
	return view, nil
}

// Writable returns the container with id if actor may post into it.
func (a *ContainerAccess) Writable(ctx context.Context, actor *entity.User, id int64) (*policy.ContainerView, apierror.ErrorResponse) {
	container, err := a.ContainerRepo.FindByID(ctx, id)
	if err != nil {
		log.Errorf("failed to fetch container %d: %v", id, err)
		return nil, apierror.InternalServerError
	}

	view, err := a.view(ctx, actor, container)
	if err != nil {
		log.Errorf("failed to fetch membership in container %d: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if apierr := a.Policy.CanWrite(view, actor); apierr != nil {
		return nil, apierr
	}
	return view, nil
}

type DefaultContainerService struct {
	Access   *ContainerAccess
	Tx       Transactor
	Validate *validator.Validate
}

func NewContainerService(access *ContainerAccess, tx Transactor, validate *validator.Validate) *DefaultContainerService {
	return &DefaultContainerService{
		Access:   access,
		Tx:       tx,
		Validate: validate,
	}
}

// CreateContainer opens a container with the actor as its first admin.
func (s *DefaultContainerService) CreateContainer(ctx context.Context, actor *entity.User, req *contract.CreateContainerRequest) (*contract.ContainerResponse, apierror.ErrorResponse) {
	if !actor.Permissions.HasEffective(entity.PermissionCreateContainers) {
		return nil, apierror.NewPermissionError(int64(entity.PermissionCreateContainers))
	}

	utils.Sanitize(req)
	if valerr := s.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	taken, err := s.Access.ContainerRepo.HandleExists(ctx, req.Handle)
	if err != nil {
		log.Errorf("failed to check container handle: %v", err)
		return nil, apierror.InternalServerError
	}

	if taken {
		return nil, apierror.HandleTakenError
	}

	now := utils.NowUTC()
	handle := req.Handle
	container := &entity.Container{
		ID:              uid.Generate(),
		Handle:          &handle,
		Name:            req.Name,
		Description:     req.Description,
		Status:          entity.ContainerStatusActive,
		Type:            entity.ContainerType(req.Type),
		ReadPermission:  entity.AccessLevel(req.ReadPermission),
		WritePermission: entity.AccessLevel(req.WritePermission),
		WriteCondition:  conditionOr(req.WriteCondition, entity.ConditionAllowed),
		JoinCondition:   conditionOr(req.JoinCondition, entity.ConditionAllowed),
		CreatedByID:     actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.Tx.Transaction(ctx, func(ctx context.Context) error {
		if err := s.Access.ContainerRepo.Create(ctx, container); err != nil {
			return err
		}

		_, _, err := s.Access.MembershipRepo.CreateIfNotExists(ctx, &entity.Membership{
			ID:          uid.Generate(),
			UserID:      actor.ID,
			ContainerID: container.ID,
			Role:        entity.RoleAdmin,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		return err
	})
	if database.IsDuplicate(err) {
		return nil, apierror.HandleTakenError
	}

	if err != nil {
		log.Errorf("failed to create container %s: %v", req.Handle, err)
		return nil, apierror.InternalServerError
	}
	return toContainerResponse(container), nil
}

func (s *DefaultContainerService) GetContainer(ctx context.Context, actor *entity.User, handle string) (*contract.ContainerResponse, apierror.ErrorResponse) {
	view, apierr := s.Access.ByHandle(ctx, actor, handle)
	if apierr != nil {
		return nil, apierr
	}
	return toContainerResponse(view.Container), nil
}

// ListContainers lists active containers. Containers are discoverable even
// when their content is not readable.
func (s *DefaultContainerService) ListContainers(ctx context.Context, q *contract.PageQuery) (*contract.Page[*contract.ContainerResponse], apierror.ErrorResponse) {
	if valerr := s.Validate.Struct(q); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	offset, limit := q.Window()
	where := filter.Eq{Field: "status", Value: entity.ContainerStatusActive}
	containers, total, err := s.Access.ContainerRepo.FindAll(ctx, where, repository.Page{Offset: offset, Limit: limit})
	if err != nil {
		log.Errorf("failed to list containers: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*contract.ContainerResponse, len(containers))
	for i, c := range containers {
		resp[i] = toContainerResponse(c)
	}
	return contract.NewPage(resp, total, offset, limit), nil
}

// Join resolves a join request against the join condition. Repeated joins
// return the existing membership.
func (s *DefaultContainerService) Join(ctx context.Context, actor *entity.User, handle string) (*contract.MembershipResponse, apierror.ErrorResponse) {
	view, apierr := s.Access.ByHandle(ctx, actor, handle)
	if apierr != nil {
		return nil, apierr
	}

	if len(view.Memberships) > 0 {
		return toMembershipResponse(view.Memberships[0]), nil
	}

	role, apierr := s.Access.Policy.ResolveJoin(view.Container)
	if apierr != nil {
		return nil, apierr
	}

	now := utils.NowUTC()
	membership, _, err := s.Access.MembershipRepo.CreateIfNotExists(ctx, &entity.Membership{
		ID:          uid.Generate(),
		UserID:      actor.ID,
		ContainerID: view.Container.ID,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		log.Errorf("failed to join container %s: %v", handle, err)
		return nil, apierror.InternalServerError
	}
	return toMembershipResponse(membership), nil
}

// Leave removes the actor's membership. Leaving without a membership is a
// no-op; the last admin cannot leave.
func (s *DefaultContainerService) Leave(ctx context.Context, actor *entity.User, handle string) apierror.ErrorResponse {
	view, apierr := s.Access.ByHandle(ctx, actor, handle)
	if apierr != nil {
		return apierr
	}

	containerID := view.Container.ID
	err := s.Tx.Transaction(ctx, func(ctx context.Context) error {
		membership, err := s.Access.MembershipRepo.Find(ctx, actor.ID, containerID)
		if err != nil || membership == nil {
			return err
		}

		if membership.Role == entity.RoleAdmin {
			admins, err := s.Access.MembershipRepo.CountByRole(ctx, containerID, entity.RoleAdmin)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return errLastAdmin
			}
		}

		_, err = s.Access.MembershipRepo.RemoveIfExists(ctx, actor.ID, containerID)
		return err
	})

	if errors.Is(err, errLastAdmin) {
		return apierror.LastAdminError
	}

	if err != nil {
		log.Errorf("failed to leave container %s: %v", handle, err)
		return apierror.InternalServerError
	}
	return nil
}

func (s *DefaultContainerService) ListMembers(ctx context.Context, actor *entity.User, handle string, q *contract.PageQuery) (*contract.Page[*contract.MembershipResponse], apierror.ErrorResponse) {
	if valerr := s.Validate.Struct(q); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	view, apierr := s.Access.ByHandle(ctx, actor, handle)
	if apierr != nil {
		return nil, apierr
	}

	if apierr := s.Access.Policy.CanRead(view, actor); apierr != nil {
		return nil, apierr
	}

	offset, limit := q.Window()
	members, total, err := s.Access.MembershipRepo.FindByContainer(ctx, view.Container.ID, repository.Page{Offset: offset, Limit: limit})
	if err != nil {
		log.Errorf("failed to list members of %s: %v", handle, err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*contract.MembershipResponse, len(members))
	for i, m := range members {
		resp[i] = toMembershipResponse(m)
	}
	return contract.NewPage(resp, total, offset, limit), nil
}

// DeleteContainer soft deletes the container and releases its handle.
// Its items stay readable by their owners only.
func (s *DefaultContainerService) DeleteContainer(ctx context.Context, actor *entity.User, handle string) apierror.ErrorResponse {
	view, apierr := s.Access.ByHandle(ctx, actor, handle)
	if apierr != nil {
		return apierr
	}

	if apierr := s.Access.Policy.CanManage(view, actor); apierr != nil {
		return apierr
	}

	now := utils.NowUTC()
	container := view.Container
	container.Status = entity.ContainerStatusDeleted
	container.Handle = nil
	container.DeletedAt = &now
	container.UpdatedAt = now

	if err := s.Access.ContainerRepo.Save(ctx, container); err != nil {
		log.Errorf("failed to delete container %s: %v", handle, err)
		return apierror.InternalServerError
	}
	return nil
}

func conditionOr(raw string, fallback entity.Condition) entity.Condition {
	if raw == "" {
		return fallback
	}
	return entity.Condition(raw)
}
