package integration

import (
	"github.com/chatforge/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeCommerceAccount = "CommerceAccount"
	AggregateTypeCRMAccount      = "CRMAccount"
)

// Event type constants
const (
	EventTypeCommerceAccountConnected = "CommerceAccountConnected"
	EventTypeCommerceAccountErrored   = "CommerceAccountErrored"
	EventTypeCommerceAccountDeleted   = "CommerceAccountDeleted"
	EventTypeCRMAccountConnected      = "CRMAccountConnected"
	EventTypeCRMAccountErrored        = "CRMAccountErrored"
	EventTypeCRMAccountDeleted        = "CRMAccountDeleted"
)

// CommerceAccountConnectedEvent is published when a tenant connects a
// commerce platform
type CommerceAccountConnectedEvent struct {
	shared.BaseDomainEvent
	Platform   CommercePlatformCode `json:"platform"`
	ShopDomain string               `json:"shop_domain"`
}

// NewCommerceAccountConnectedEvent creates a new CommerceAccountConnectedEvent
func NewCommerceAccountConnectedEvent(a *CommerceAccount) *CommerceAccountConnectedEvent {
	return &CommerceAccountConnectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCommerceAccountConnected, AggregateTypeCommerceAccount, a.ID, a.TenantID),
		Platform:        a.Platform,
		ShopDomain:      a.ShopDomain,
	}
}

// CommerceAccountErroredEvent is published when a commerce lookup fails
// against the account
type CommerceAccountErroredEvent struct {
	shared.BaseDomainEvent
	Platform CommercePlatformCode `json:"platform"`
	Reason   string               `json:"reason"`
}

// NewCommerceAccountErroredEvent creates a new CommerceAccountErroredEvent
func NewCommerceAccountErroredEvent(a *CommerceAccount) *CommerceAccountErroredEvent {
	return &CommerceAccountErroredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCommerceAccountErrored, AggregateTypeCommerceAccount, a.ID, a.TenantID),
		Platform:        a.Platform,
		Reason:          a.LastError,
	}
}

// CommerceAccountDeletedEvent is published when a commerce account is
// removed
type CommerceAccountDeletedEvent struct {
	shared.BaseDomainEvent
	Platform CommercePlatformCode `json:"platform"`
}

// NewCommerceAccountDeletedEvent creates a new CommerceAccountDeletedEvent
func NewCommerceAccountDeletedEvent(a *CommerceAccount) *CommerceAccountDeletedEvent {
	return &CommerceAccountDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCommerceAccountDeleted, AggregateTypeCommerceAccount, a.ID, a.TenantID),
		Platform:        a.Platform,
	}
}

// CRMAccountConnectedEvent is published when a tenant connects a CRM
// platform
type CRMAccountConnectedEvent struct {
	shared.BaseDomainEvent
	Platform CRMPlatformCode `json:"platform"`
}

// NewCRMAccountConnectedEvent creates a new CRMAccountConnectedEvent
func NewCRMAccountConnectedEvent(a *CRMAccount) *CRMAccountConnectedEvent {
	return &CRMAccountConnectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCRMAccountConnected, AggregateTypeCRMAccount, a.ID, a.TenantID),
		Platform:        a.Platform,
	}
}

// CRMAccountErroredEvent is published when a lead sync fails against
// the account
type CRMAccountErroredEvent struct {
	shared.BaseDomainEvent
	Platform CRMPlatformCode `json:"platform"`
	Reason   string          `json:"reason"`
}

// NewCRMAccountErroredEvent creates a new CRMAccountErroredEvent
func NewCRMAccountErroredEvent(a *CRMAccount) *CRMAccountErroredEvent {
	return &CRMAccountErroredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCRMAccountErrored, AggregateTypeCRMAccount, a.ID, a.TenantID),
		Platform:        a.Platform,
		Reason:          a.LastError,
	}
}

// CRMAccountDeletedEvent is published when a CRM account is removed
type CRMAccountDeletedEvent struct {
	shared.BaseDomainEvent
	Platform CRMPlatformCode `json:"platform"`
}

// NewCRMAccountDeletedEvent creates a new CRMAccountDeletedEvent
func NewCRMAccountDeletedEvent(a *CRMAccount) *CRMAccountDeletedEvent {
	return &CRMAccountDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCRMAccountDeleted, AggregateTypeCRMAccount, a.ID, a.TenantID),
		Platform:        a.Platform,
	}
}
