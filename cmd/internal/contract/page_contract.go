package contract

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type PageQuery struct {
	Offset int `query:"offset" validate:"min=0"`
	Limit  int `query:"limit" validate:"min=0,max=100"`
}

// Window returns the offset and the effective limit of the query.
func (p PageQuery) Window() (int, int) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return p.Offset, limit
}

type PageMeta struct {
	Total  int64 `json:"total"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
}

// Page is the envelope of every list response.
type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

func NewPage[T any](data []T, total int64, offset, limit int) *Page[T] {
	if data == nil {
		data = []T{}
	}
	return &Page[T]{
		Data: data,
		Meta: PageMeta{Total: total, Offset: offset, Limit: limit},
	}
}
