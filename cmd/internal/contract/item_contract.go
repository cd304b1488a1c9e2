package contract

const MaxItemBodyBytes = 1_000_000

type ItemOrder string

const (
	ItemOrderNewest  ItemOrder = "newest"
	ItemOrderUpdated ItemOrder = "updated"
	ItemOrderLiked   ItemOrder = "liked"
)

type TrendingPeriod string

const (
	TrendingWeekly  TrendingPeriod = "weekly"
	TrendingMonthly TrendingPeriod = "monthly"
)

type CreateItemRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Body        string   `json:"body" validate:"required,max=1000000"`
	Tags        []string `json:"tags" validate:"max=10,nodupes,dive,required,min=1,max=30,nospaces"`
	ContainerID *int64   `json:"container_id" validate:"omitempty,min=1"`
}

type UpdateItemRequest struct {
	Title *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Body  *string  `json:"body" validate:"omitempty,max=1000000"`
	Tags  []string `json:"tags" validate:"omitempty,max=10,nodupes,dive,required,min=1,max=30,nospaces"`
}

// DraftRequest saves a draft body. Title and tags are optional on updates.
type DraftRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Body        string   `json:"body" validate:"max=1000000"`
	Tags        []string `json:"tags" validate:"omitempty,max=10,nodupes,dive,required,min=1,max=30,nospaces"`
	ContainerID *int64   `json:"container_id" validate:"omitempty,min=1"`
}

type ItemListQuery struct {
	PageQuery
	Order       ItemOrder `query:"order" validate:"omitempty,oneof=newest updated liked"`
	ContainerID int64     `query:"container_id" validate:"min=0"`
	OwnerID     int64     `query:"owner_id" validate:"min=0"`
}

type SearchQuery struct {
	PageQuery
	Q string `query:"q" validate:"required,min=1,max=200"`
}

type TrendingQuery struct {
	Period TrendingPeriod `query:"period" validate:"required,oneof=weekly monthly"`
	Count  int            `query:"count" validate:"min=0,max=100"`
}

type ItemResponse struct {
	ID          int64         `json:"id"`
	Owner       *UserResponse `json:"owner,omitempty"`
	OwnerID     int64         `json:"owner_id"`
	ContainerID *int64        `json:"container_id"`
	Title       string        `json:"title"`
	Tags        []string      `json:"tags"`
	Body        *string       `json:"body,omitempty"`
	HasDraft    bool          `json:"has_draft"`
	Status      string        `json:"status"`
	LikeCount   int64         `json:"like_count"`
	StockCount  int64         `json:"stock_count"`
	AccessCount int64         `json:"access_count"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
	PublishedAt *string       `json:"published_at"`
}

// InteractionResponse reports the state of a like or stock after a toggle.
type InteractionResponse struct {
	ItemID int64 `json:"item_id"`
	Active bool  `json:"active"`
	Count  int64 `json:"count"`
}
