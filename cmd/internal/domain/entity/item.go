package entity

type ItemStatus string

const (
	ItemStatusNormal          ItemStatus = "NORMAL"
	ItemStatusDeleted         ItemStatus = "DELETED"
	ItemStatusDraft           ItemStatus = "DRAFT"
	ItemStatusPendingApproval ItemStatus = "PENDING_APPROVAL"
)

// Item is a piece of user content. The body lives in the blob store and is
// referenced through the Body slots; the row itself only carries metadata.
type Item struct {
	ID          int64      `gorm:"primaryKey;autoIncrement:false"`
	OwnerID     int64      `gorm:"not null;index"` // References: users(id)
	ContainerID *int64     `gorm:"index"`          // References: containers(id)
	Title       string     `gorm:"not null"`
	Tags        string     `gorm:"not null;default:''"`
	Body        BodySlots  `gorm:"embedded;embeddedPrefix:body_"`
	Status      ItemStatus `gorm:"not null;index;type:varchar(24)"`
	LikeCount   int64      `gorm:"not null;default:0"`
	StockCount  int64      `gorm:"not null;default:0"`
	AccessCount int64      `gorm:"not null;default:0"`
	CreatedAt   int64      `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   int64      `gorm:"not null;autoUpdateTime:false"`
	PublishedAt *int64

	// Relations
	Owner     *User      `gorm:"foreignKey:OwnerID;references:ID"`
	Container *Container `gorm:"foreignKey:ContainerID;references:ID"`
}

// IsOwnedBy reports whether the user is the author of the item.
func (i *Item) IsOwnedBy(user *User) bool {
	return user != nil && i.OwnerID == user.ID
}

// BlobName returns the object name of a body version inside the items container.
func (i *Item) BlobName(ref string) string {
	return BlobName(i.ID, ref)
}

func (i *Item) IsDraft() bool {
	return i.Status == ItemStatusDraft
}
