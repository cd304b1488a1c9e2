package policy

import (
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/filter"
)

// ItemView is an item loaded together with what its visibility depends on.
// Memberships may be limited to those of the viewer.
type ItemView struct {
	Item        *entity.Item
	Container   *entity.Container
	Memberships []*entity.Membership
}

// ContainerView is a container with the viewer's memberships.
type ContainerView struct {
	Container   *entity.Container
	Memberships []*entity.Membership
}

func (v *ItemView) Field(name string) (any, bool) {
	i := v.Item
	switch name {
	case "id":
		return i.ID, true
	case "owner_id":
		return i.OwnerID, true
	case "container_id":
		return i.ContainerID, true
	case "status":
		return i.Status, true
	case "title":
		return i.Title, true
	case "created_at":
		return i.CreatedAt, true
	}
	return nil, false
}

func (v *ItemView) Related(relation string) []filter.Record {
	if relation != relContainer || v.Container == nil {
		return nil
	}
	return []filter.Record{&ContainerView{Container: v.Container, Memberships: v.Memberships}}
}

func (v *ContainerView) Field(name string) (any, bool) {
	c := v.Container
	switch name {
	case "id":
		return c.ID, true
	case "handle":
		return c.Handle, true
	case "status":
		return c.Status, true
	case "type":
		return c.Type, true
	case "read_permission":
		return c.ReadPermission, true
	case "write_permission":
		return c.WritePermission, true
	case "write_condition":
		return c.WriteCondition, true
	case "join_condition":
		return c.JoinCondition, true
	case "created_by_id":
		return c.CreatedByID, true
	}
	return nil, false
}

func (v *ContainerView) Related(relation string) []filter.Record {
	if relation != relMemberships {
		return nil
	}

	out := make([]filter.Record, 0, len(v.Memberships))
	for _, m := range v.Memberships {
		if m.ContainerID == v.Container.ID {
			out = append(out, membershipRecord{m})
		}
	}
	return out
}

type membershipRecord struct {
	m *entity.Membership
}

func (r membershipRecord) Field(name string) (any, bool) {
	switch name {
	case "id":
		return r.m.ID, true
	case "user_id":
		return r.m.UserID, true
	case "container_id":
		return r.m.ContainerID, true
	case "role":
		return r.m.Role, true
	}
	return nil, false
}

func (r membershipRecord) Related(string) []filter.Record {
	return nil
}
