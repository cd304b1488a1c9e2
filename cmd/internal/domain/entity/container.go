package entity

type ContainerStatus string

const (
	ContainerStatusActive  ContainerStatus = "ACTIVE"
	ContainerStatusDeleted ContainerStatus = "DELETED"
)

type ContainerType string

const (
	ContainerTypeOpen    ContainerType = "OPEN"
	ContainerTypePublic  ContainerType = "PUBLIC"
	ContainerTypePrivate ContainerType = "PRIVATE"
)

// AccessLevel is the minimum relation a user must hold to a container.
type AccessLevel string

const (
	AccessAdmin  AccessLevel = "ADMIN"
	AccessMember AccessLevel = "MEMBER"
	AccessAll    AccessLevel = "ALL"
)

type Condition string

const (
	ConditionAllowed              Condition = "ALLOWED"
	ConditionRequireAdminApproval Condition = "REQUIRE_ADMIN_APPROVAL"
	// ConditionDenied only applies to joins.
	ConditionDenied Condition = "DENIED"
)

// Container is a group that owns items and gates them behind memberships.
type Container struct {
	ID              int64           `gorm:"primaryKey;autoIncrement:false"`
	Handle          *string         `gorm:"uniqueIndex"`
	Name            string          `gorm:"not null"`
	Description     string          `gorm:"not null;default:''"`
	Status          ContainerStatus `gorm:"not null;type:varchar(16)"`
	Type            ContainerType   `gorm:"not null;type:varchar(16)"`
	ReadPermission  AccessLevel     `gorm:"not null;type:varchar(16)"`
	WritePermission AccessLevel     `gorm:"not null;type:varchar(16)"`
	WriteCondition  Condition       `gorm:"not null;type:varchar(32)"`
	JoinCondition   Condition       `gorm:"not null;type:varchar(32)"`
	CreatedByID     int64           `gorm:"not null"` // References: users(id)
	CreatedAt       int64           `gorm:"not null;autoCreateTime:false"`
	UpdatedAt       int64           `gorm:"not null;autoUpdateTime:false"`
	DeletedAt       *int64

	// Relations
	Memberships []*Membership `gorm:"foreignKey:ContainerID;references:ID;constraint:OnDelete:CASCADE;"`
}

func (c *Container) IsActive() bool {
	return c.Status == ContainerStatusActive
}

// IsBrowsable reports whether the container type opens its content to everyone
// regardless of the read permission.
func (c *Container) IsBrowsable() bool {
	return c.Type == ContainerTypeOpen || c.Type == ContainerTypePublic
}
