package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// Common allowed sort fields for entities with base fields
// These are the common fields present in most entities

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"email":         true,
	"display_name":  true,
	"role":          true,
	"status":        true,
	"last_login_at": true,
}

// TenantSortFields contains allowed sort fields for tenants
var TenantSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"short_name": true,
	"status":     true,
	"plan":       true,
	"expires_at": true,
}

// BotSortFields contains allowed sort fields for bots
var BotSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"name":         true,
	"slug":         true,
	"status":       true,
	"published_at": true,
}

// ConversationSortFields contains allowed sort fields for conversations
var ConversationSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"channel":         true,
	"status":          true,
	"message_count":   true,
	"last_message_at": true,
}

// DocumentSortFields contains allowed sort fields for knowledge documents
var DocumentSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"name":        true,
	"source_type": true,
	"status":      true,
	"size_bytes":  true,
	"chunk_count": true,
	"embedded_at": true,
}

// ChannelAccountSortFields contains allowed sort fields for channel accounts
var ChannelAccountSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"name":         true,
	"channel_type": true,
	"status":       true,
}

// ReviewSortFields contains allowed sort fields for reviews
var ReviewSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"rating":       true,
	"status":       true,
	"source":       true,
	"moderated_at": true,
}
