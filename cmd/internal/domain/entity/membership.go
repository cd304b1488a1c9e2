package entity

type Role string

const (
	RoleAdmin           Role = "ADMIN"
	RoleMember          Role = "MEMBER"
	RolePendingApproval Role = "PENDING_APPROVAL"
)

// Membership links a user to a container. A user holds at most one
// membership per container.
type Membership struct {
	ID          int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID      int64 `gorm:"not null;uniqueIndex:idx_membership_user_container"`
	ContainerID int64 `gorm:"not null;uniqueIndex:idx_membership_user_container;index"`
	Role        Role  `gorm:"not null;type:varchar(24)"`
	CreatedAt   int64 `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   int64 `gorm:"not null;autoUpdateTime:false"`
}

// Grants reports whether the role counts as an actual member. Pending
// requests grant nothing.
func (r Role) Grants(level AccessLevel) bool {
	switch level {
	case AccessAll:
		return true
	case AccessMember:
		return r == RoleAdmin || r == RoleMember
	case AccessAdmin:
		return r == RoleAdmin
	}
	return false
}
