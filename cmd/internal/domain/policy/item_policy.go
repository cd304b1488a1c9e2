package policy

import (
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/filter"
	"circlenotes/cmd/internal/utils/apierror"
)

// ItemPolicy encapsulates all business rules for item manipulation.
// It returns apierror.ErrorResponse directly for seamless integration with handlers.
//
// Items the actor cannot read are reported as missing. Refusals on items the
// actor can read are reported as forbidden.
type ItemPolicy struct{}

func NewItemPolicy() *ItemPolicy {
	return &ItemPolicy{}
}

// CanSee runs the same rule list queries compile into SQL.
func (p *ItemPolicy) CanSee(view *ItemView, actor *entity.User) apierror.ErrorResponse {
	if view == nil || view.Item == nil {
		return apierror.NotFoundError
	}

	if !filter.Eval(ReadableBy(actor), view) {
		return apierror.NotFoundError
	}
	return nil
}

// CanModify checks if 'actor' may change the body, metadata or lifecycle of the item.
// Only owners mutate their items.
func (p *ItemPolicy) CanModify(view *ItemView, actor *entity.User) apierror.ErrorResponse {
	if apierr := p.CanSee(view, actor); apierr != nil {
		return apierr
	}

	if !view.Item.IsOwnedBy(actor) {
		return apierror.ForbiddenError
	}
	return nil
}

// CanInteract checks likes and stocks, which need a readable published item.
func (p *ItemPolicy) CanInteract(view *ItemView, actor *entity.User) apierror.ErrorResponse {
	if apierr := p.CanSee(view, actor); apierr != nil {
		return apierr
	}

	if !actor.Permissions.HasEffective(entity.PermissionInteract) {
		return permError(entity.PermissionInteract)
	}

	if view.Item.Status != entity.ItemStatusNormal {
		return apierror.NotFoundError
	}
	return nil
}

func permError(perm entity.Permission) *apierror.APIError {
	return apierror.NewPermissionError(int64(perm))
}
