package contract

type UpdateUserRequest struct {
	Handle      *string `json:"handle" validate:"omitempty,handle"`
	DisplayName *string `json:"display_name" validate:"omitempty,min=1,max=80"`
}

type UserResponse struct {
	ID          int64   `json:"id"`
	Handle      *string `json:"handle"`
	DisplayName string  `json:"display_name"`
	Perms       int64   `json:"permissions"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type FollowResponse struct {
	FolloweeID int64 `json:"followee_id"`
	Following  bool  `json:"following"`
}
