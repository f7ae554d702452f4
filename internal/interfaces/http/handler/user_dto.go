package handler

import (
	"time"

	"github.com/google/uuid"
)

// =====================
// User Request DTOs
// =====================

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Email       string `json:"email" binding:"required,email,max=320"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	DisplayName string `json:"display_name" binding:"max=200"`
	Role        string `json:"role" binding:"required,oneof=owner admin member"`
	Notes       string `json:"notes" binding:"max=1000"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Email       *string `json:"email" binding:"omitempty,email,max=320"`
	DisplayName *string `json:"display_name" binding:"omitempty,max=200"`
	Avatar      *string `json:"avatar" binding:"omitempty,max=500"`
	Notes       *string `json:"notes" binding:"omitempty,max=1000"`
}

// SetUserRoleRequest represents the request body for changing a user's role
type SetUserRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=owner admin member"`
}

// ResetPasswordRequest represents the request body for admin password reset
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

// LockUserRequest represents the request body for locking a user
type LockUserRequest struct {
	DurationMinutes int `json:"duration_minutes" binding:"omitempty,min=1,max=10080"`
}

// UserListQuery represents query parameters for listing users
type UserListQuery struct {
	Keyword  string `form:"keyword"`
	Status   string `form:"status" binding:"omitempty,oneof=pending active locked deactivated"`
	Role     string `form:"role" binding:"omitempty,oneof=owner admin member"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=email display_name role created_at updated_at last_login_at"`
	SortDir  string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// =====================
// User Response DTOs
// =====================

// UserResponse represents user data in responses
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Avatar      string     `json:"avatar,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UserListResponse represents a paginated user list
type UserListResponse struct {
	Users      []UserResponse `json:"users"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}
