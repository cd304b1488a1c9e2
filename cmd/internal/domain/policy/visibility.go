package policy

import (
	"circlenotes/cmd/internal/domain/entity"
	"circlenotes/cmd/internal/domain/filter"
)

const (
	TableItems       = "items"
	TableContainers  = "containers"
	TableMemberships = "memberships"

	relContainer   = "container"
	relMemberships = "memberships"
)

// NewCompiler returns a compiler aware of the relations used by the
// visibility expressions.
func NewCompiler() *filter.Compiler {
	return filter.NewCompiler(
		filter.Schema{
			Table: TableItems,
			Relations: map[string]filter.Relation{
				relContainer: {Target: TableContainers, LocalColumn: "container_id", RemoteColumn: "id"},
			},
		},
		filter.Schema{
			Table: TableContainers,
			Relations: map[string]filter.Relation{
				relMemberships: {Target: TableMemberships, LocalColumn: "id", RemoteColumn: "container_id"},
			},
		},
	)
}

// Visibility is the read rule of items, ignoring their lifecycle:
// owners always see their items, loose items are public once NORMAL and
// items inside a container follow the container access rules.
func Visibility(user *entity.User) filter.Expr {
	return filter.Or{
		filter.Eq{Field: "owner_id", Value: userID(user)},
		filter.And{
			filter.IsNull{Field: "container_id"},
			filter.Eq{Field: "status", Value: entity.ItemStatusNormal},
		},
		filter.Related{
			Relation: relContainer,
			Where:    ContainerReadable(user),
		},
	}
}

// ReadableBy is Visibility narrowed by the item lifecycle. Deleted items
// are never readable, drafts and pending items only by their owner.
func ReadableBy(user *entity.User) filter.Expr {
	return filter.And{
		Visibility(user),
		filter.Or{
			filter.Eq{Field: "status", Value: entity.ItemStatusNormal},
			filter.And{
				filter.Eq{Field: "owner_id", Value: userID(user)},
				filter.InOf("status", entity.ItemStatusDraft, entity.ItemStatusPendingApproval),
			},
		},
	}
}

// ContainerReadable matches active containers whose content the user may read.
// OPEN and PUBLIC containers are browsable regardless of their read permission.
func ContainerReadable(user *entity.User) filter.Expr {
	return filter.And{
		filter.Eq{Field: "status", Value: entity.ContainerStatusActive},
		filter.Or{
			filter.InOf("type", entity.ContainerTypeOpen, entity.ContainerTypePublic),
			access(user, "read_permission"),
		},
	}
}

// ContainerWritable matches active containers the user may post into.
func ContainerWritable(user *entity.User) filter.Expr {
	return filter.And{
		filter.Eq{Field: "status", Value: entity.ContainerStatusActive},
		access(user, "write_permission"),
	}
}

func access(user *entity.User, column string) filter.Expr {
	uid := userID(user)
	return filter.Or{
		filter.Eq{Field: column, Value: entity.AccessAll},
		filter.And{
			filter.Eq{Field: column, Value: entity.AccessMember},
			filter.Related{
				Relation: relMemberships,
				Where: filter.And{
					filter.Eq{Field: "user_id", Value: uid},
					filter.InOf("role", entity.RoleAdmin, entity.RoleMember),
				},
			},
		},
		filter.And{
			filter.Eq{Field: column, Value: entity.AccessAdmin},
			filter.Related{
				Relation: relMemberships,
				Where: filter.And{
					filter.Eq{Field: "user_id", Value: uid},
					filter.Eq{Field: "role", Value: entity.RoleAdmin},
				},
			},
		},
	}
}

// userID is zero for anonymous readers. Snowflake ids are never zero.
func userID(user *entity.User) int64 {
	if user == nil {
		return 0
	}
	return user.ID
}
