package entity

type UserStatus string

const (
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusDeleted UserStatus = "DELETED"
)

// User is the general basic structure of all users across the platform
type User struct {
	ID          int64      `gorm:"primaryKey;autoIncrement:false"`
	Subject     string     `gorm:"not null;uniqueIndex"`
	Handle      *string    `gorm:"uniqueIndex"`
	DisplayName string     `gorm:"not null;default:''"`
	Email       string     `gorm:"not null;default:''"`
	Status      UserStatus `gorm:"not null;type:varchar(16)"`
	Permissions Permission `gorm:"not null;type:bigint;default:0"`
	CreatedAt   int64      `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   int64      `gorm:"not null;autoUpdateTime:false"`
	DeletedAt   *int64
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
