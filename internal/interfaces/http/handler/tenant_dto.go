package handler

import (
	"time"

	"github.com/google/uuid"
)

// =====================
// Tenant Request DTOs
// =====================

// RegisterTenantRequest represents the request body for self-service signup
type RegisterTenantRequest struct {
	Code          string `json:"code" binding:"required,min=2,max=50"`
	Name          string `json:"name" binding:"required,min=1,max=200"`
	OwnerEmail    string `json:"owner_email" binding:"required,email,max=320"`
	OwnerPassword string `json:"owner_password" binding:"required,min=8,max=128"`
	OwnerName     string `json:"owner_name" binding:"omitempty,max=200"`
}

// CreateTenantRequest represents the request body for creating a tenant
type CreateTenantRequest struct {
	Code         string `json:"code" binding:"required,min=2,max=50"`
	Name         string `json:"name" binding:"required,min=1,max=200"`
	ShortName    string `json:"short_name" binding:"omitempty,max=100"`
	ContactName  string `json:"contact_name" binding:"omitempty,max=100"`
	ContactPhone string `json:"contact_phone" binding:"omitempty,max=50"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email,max=200"`
	LogoURL      string `json:"logo_url" binding:"omitempty,url,max=500"`
	Domain       string `json:"domain" binding:"omitempty,max=200"`
	Plan         string `json:"plan" binding:"omitempty,oneof=free starter pro enterprise"`
	Notes        string `json:"notes" binding:"omitempty"`
	TrialDays    int    `json:"trial_days" binding:"omitempty,min=1,max=365"`
}

// UpdateTenantRequest represents the request body for updating a tenant
// @name HandlerUpdateTenantRequest
type UpdateTenantRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=200"`
	ShortName    *string `json:"short_name" binding:"omitempty,max=100"`
	ContactName  *string `json:"contact_name" binding:"omitempty,max=100"`
	ContactPhone *string `json:"contact_phone" binding:"omitempty,max=50"`
	ContactEmail *string `json:"contact_email" binding:"omitempty,email,max=200"`
	LogoURL      *string `json:"logo_url" binding:"omitempty,max=500"`
	Domain       *string `json:"domain" binding:"omitempty,max=200"`
	Notes        *string `json:"notes" binding:"omitempty"`
}

// UpdateTenantConfigRequest represents the request body for updating tenant configuration
type UpdateTenantConfigRequest struct {
	MaxUsers            *int    `json:"max_users" binding:"omitempty,min=0"`
	MaxBots             *int    `json:"max_bots" binding:"omitempty,min=0"`
	MaxDocuments        *int    `json:"max_documents" binding:"omitempty,min=0"`
	MaxMessagesPerMonth *int    `json:"max_messages_per_month" binding:"omitempty,min=0"`
	MaxChannels         *int    `json:"max_channels" binding:"omitempty,min=0"`
	AllowAPIAccess      *bool   `json:"allow_api_access"`
	RemoveBranding      *bool   `json:"remove_branding"`
	Timezone            *string `json:"timezone" binding:"omitempty,max=50"`
	Locale              *string `json:"locale" binding:"omitempty,max=10"`
}

// SetTenantPlanRequest represents the request body for setting tenant plan
type SetTenantPlanRequest struct {
	Plan string `json:"plan" binding:"required,oneof=free starter pro enterprise"`
}

// TenantListQuery represents query parameters for listing tenants
type TenantListQuery struct {
	Keyword  string `form:"keyword" binding:"omitempty"`
	Status   string `form:"status" binding:"omitempty,oneof=active inactive suspended trial"`
	Plan     string `form:"plan" binding:"omitempty,oneof=free starter pro enterprise"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=code name status plan created_at updated_at"`
	SortDir  string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// =====================
// Tenant Response DTOs
// =====================

// TenantResponse represents a tenant in API responses
type TenantResponse struct {
	ID           uuid.UUID            `json:"id"`
	Code         string               `json:"code"`
	Name         string               `json:"name"`
	ShortName    string               `json:"short_name,omitempty"`
	Status       string               `json:"status"`
	Plan         string               `json:"plan"`
	ContactName  string               `json:"contact_name,omitempty"`
	ContactPhone string               `json:"contact_phone,omitempty"`
	ContactEmail string               `json:"contact_email,omitempty"`
	LogoURL      string               `json:"logo_url,omitempty"`
	Domain       string               `json:"domain,omitempty"`
	ExpiresAt    *time.Time           `json:"expires_at,omitempty"`
	TrialEndsAt  *time.Time           `json:"trial_ends_at,omitempty"`
	Config       TenantConfigResponse `json:"config"`
	Notes        string               `json:"notes,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// TenantConfigResponse represents tenant configuration in API responses
type TenantConfigResponse struct {
	MaxUsers            int    `json:"max_users"`
	MaxBots             int    `json:"max_bots"`
	MaxDocuments        int    `json:"max_documents"`
	MaxMessagesPerMonth int    `json:"max_messages_per_month"`
	MaxChannels         int    `json:"max_channels"`
	AllowAPIAccess      bool   `json:"allow_api_access"`
	RemoveBranding      bool   `json:"remove_branding"`
	Timezone            string `json:"timezone"`
	Locale              string `json:"locale"`
}

// RegisterTenantResponse represents the result of self-service signup
type RegisterTenantResponse struct {
	Tenant TenantResponse `json:"tenant"`
	Owner  UserResponse   `json:"owner"`
}

// TenantListResponse represents a paginated list of tenants
type TenantListResponse struct {
	Tenants    []TenantResponse `json:"tenants"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// TenantStatsResponse represents tenant statistics
type TenantStatsResponse struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Trial     int64 `json:"trial"`
	Inactive  int64 `json:"inactive"`
	Suspended int64 `json:"suspended"`
}
