package entity

type Like struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID    int64 `gorm:"not null;uniqueIndex:idx_like_user_item"`
	ItemID    int64 `gorm:"not null;uniqueIndex:idx_like_user_item;index"`
	CreatedAt int64 `gorm:"not null;autoCreateTime:false"`
}

// Stock is a bookmark of an item kept by a user.
type Stock struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID    int64 `gorm:"not null;uniqueIndex:idx_stock_user_item"`
	ItemID    int64 `gorm:"not null;uniqueIndex:idx_stock_user_item;index"`
	CreatedAt int64 `gorm:"not null;autoCreateTime:false"`
}

type Follow struct {
	ID         int64 `gorm:"primaryKey;autoIncrement:false"`
	FollowerID int64 `gorm:"not null;uniqueIndex:idx_follow_pair"`
	FolloweeID int64 `gorm:"not null;uniqueIndex:idx_follow_pair;index"`
	CreatedAt  int64 `gorm:"not null;autoCreateTime:false"`
}
