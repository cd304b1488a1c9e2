package policy

import (
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/filter"
	"circlenotes/cmd/internal/utils/apierror"
)

// ContainerPolicy holds the membership driven rules of containers.
type ContainerPolicy struct{}

func NewContainerPolicy() *ContainerPolicy {
	return &ContainerPolicy{}
}

// CanSee reports deleted containers as missing. Active containers are
// discoverable by everyone, their content is not.
func (p *ContainerPolicy) CanSee(view *ContainerView) apierror.ErrorResponse {
	if view == nil || view.Container == nil || !view.Container.IsActive() {
		return apierror.NotFoundError
	}
	return nil
}

// CanRead checks if 'actor' may browse the content and the members of the container.
func (p *ContainerPolicy) CanRead(view *ContainerView, actor *entity.User) apierror.ErrorResponse {
	if apierr := p.CanSee(view); apierr != nil {
		return apierr
	}

	if !filter.Eval(ContainerReadable(actor), view) {
		return apierror.ForbiddenError
	}
	return nil
}

// CanWrite checks if 'actor' may post items into the container.
func (p *ContainerPolicy) CanWrite(view *ContainerView, actor *entity.User) apierror.ErrorResponse {
	if apierr := p.CanSee(view); apierr != nil {
		return apierr
	}

	if !actor.Permissions.HasEffective(entity.PermissionCreateItems) {
		return permError(entity.PermissionCreateItems)
	}

	if !filter.Eval(ContainerWritable(actor), view) {
		return apierror.ForbiddenError
	}
	return nil
}

// CanManage checks if 'actor' administrates the container.
func (p *ContainerPolicy) CanManage(view *ContainerView, actor *entity.User) apierror.ErrorResponse {
	if apierr := p.CanSee(view); apierr != nil {
		return apierr
	}

	if actor.Permissions.Has(entity.PermissionAdministrator) {
		return nil
	}

	for _, m := range view.Memberships {
		if m.UserID == actor.ID && m.ContainerID == view.Container.ID && m.Role == entity.RoleAdmin {
			return nil
		}
	}
	return apierror.ForbiddenError
}

// ResolveJoin maps the join condition of the container to the role a new
// membership gets.
func (p *ContainerPolicy) ResolveJoin(container *entity.Container) (entity.Role, apierror.ErrorResponse) {
	switch container.JoinCondition {
	case entity.ConditionAllowed:
		return entity.RoleMember, nil
	case entity.ConditionRequireAdminApproval:
		return entity.RolePendingApproval, nil
	default:
		return "", apierror.JoinDeniedError
	}
}

// InitialItemStatus is the status of a freshly published item. Containers
// requiring approval hold new items as pending; nothing promotes them yet.
func (p *ContainerPolicy) InitialItemStatus(container *entity.Container) entity.ItemStatus {
	if container != nil && container.WriteCondition == entity.ConditionRequireAdminApproval {
		return entity.ItemStatusPendingApproval
	}
	return entity.ItemStatusNormal
}
