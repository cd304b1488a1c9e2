package contract

type CreateContainerRequest struct {
	Handle          string `json:"handle" validate:"required,handle"`
	Name            string `json:"name" validate:"required,min=2,max=80"`
	Description     string `json:"description" validate:"max=500"`
	Type            string `json:"type" validate:"required,oneof=OPEN PUBLIC PRIVATE"`
	ReadPermission  string `json:"read_permission" validate:"required,oneof=ADMIN MEMBER ALL"`
	WritePermission string `json:"write_permission" validate:"required,oneof=ADMIN MEMBER ALL"`
	WriteCondition  string `json:"write_condition" validate:"omitempty,oneof=ALLOWED REQUIRE_ADMIN_APPROVAL"`
	JoinCondition   string `json:"join_condition" validate:"omitempty,oneof=ALLOWED REQUIRE_ADMIN_APPROVAL DENIED"`
}

type ContainerResponse struct {
	ID              int64   `json:"id"`
	Handle          *string `json:"handle"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Status          string  `json:"status"`
	Type            string  `json:"type"`
	ReadPermission  string  `json:"read_permission"`
	WritePermission string  `json:"write_permission"`
	WriteCondition  string  `json:"write_condition"`
	JoinCondition   string  `json:"join_condition"`
	CreatedByID     int64   `json:"created_by_id"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type MembershipResponse struct {
	UserID      int64  `json:"user_id"`
	ContainerID int64  `json:"container_id"`
	Role        string `json:"role"`
	CreatedAt   string `json:"created_at"`
}
