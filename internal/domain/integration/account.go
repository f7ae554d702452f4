package integration

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Account validation errors
var (
	ErrAccountInvalidPlatform    = errors.New("integration: invalid platform code")
	ErrAccountShopDomainRequired = errors.New("integration: shop domain is required")
	ErrAccountShopDomainInvalid  = errors.New("integration: shop domain is invalid")
	ErrAccountCredentialsInvalid = errors.New("integration: credentials must be non-empty valid JSON")
)

// AccountStatus represents the operational state of an integration
// account
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
	AccountStatusError    AccountStatus = "error" // Last platform call failed
)

const maxAccountErrorLength = 500

// ---------------------------------------------------------------------------
// CommerceAccount Aggregate
// ---------------------------------------------------------------------------

// CommerceAccount holds a tenant's connection to one commerce platform.
// Credentials hold platform-specific secrets as JSON and are encrypted
// at rest by the persistence layer.
type CommerceAccount struct {
	shared.TenantAggregateRoot
	Platform    CommercePlatformCode
	ShopDomain  string
	Credentials string
	Status      AccountStatus
	LastError   string
	LastErrorAt *time.Time
}

// NewCommerceAccount connects a tenant to a commerce platform
func NewCommerceAccount(tenantID uuid.UUID, platform CommercePlatformCode, shopDomain, credentials string) (*CommerceAccount, error) {
	if !platform.IsValid() {
		return nil, ErrAccountInvalidPlatform
	}
	if err := validateShopDomain(shopDomain); err != nil {
		return nil, err
	}
	if !isValidCredentialsJSON(credentials) {
		return nil, ErrAccountCredentialsInvalid
	}

	a := &CommerceAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Platform:            platform,
		ShopDomain:          strings.ToLower(strings.TrimSpace(shopDomain)),
		Credentials:         credentials,
		Status:              AccountStatusActive,
	}

	a.AddDomainEvent(NewCommerceAccountConnectedEvent(a))

	return a, nil
}

// UpdateCredentials replaces the account's secrets and recovers it from
// the error state
func (a *CommerceAccount) UpdateCredentials(credentials string) error {
	if !isValidCredentialsJSON(credentials) {
		return ErrAccountCredentialsInvalid
	}

	a.Credentials = credentials
	if a.Status == AccountStatusError {
		a.Status = AccountStatusActive
	}
	a.LastError = ""
	a.LastErrorAt = nil
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// Activate resumes lookups through the account
func (a *CommerceAccount) Activate() error {
	if a.Status == AccountStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Commerce account is already active")
	}

	a.Status = AccountStatusActive
	a.LastError = ""
	a.LastErrorAt = nil
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// Deactivate stops lookups through the account
func (a *CommerceAccount) Deactivate() error {
	if a.Status == AccountStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Commerce account is already inactive")
	}

	a.Status = AccountStatusInactive
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// RecordError puts the account into the error state with the reason
func (a *CommerceAccount) RecordError(message string) {
	if len(message) > maxAccountErrorLength {
		message = message[:maxAccountErrorLength]
	}

	now := time.Now()
	a.Status = AccountStatusError
	a.LastError = message
	a.LastErrorAt = &now
	a.UpdatedAt = now
	a.IncrementVersion()

	a.AddDomainEvent(NewCommerceAccountErroredEvent(a))
}

// IsActive returns true if the account serves lookups
func (a *CommerceAccount) IsActive() bool {
	return a.Status == AccountStatusActive
}

// ---------------------------------------------------------------------------
// CRMAccount Aggregate
// ---------------------------------------------------------------------------

// CRMAccount holds a tenant's connection to one CRM platform.
// Credentials hold platform-specific secrets as JSON and are encrypted
// at rest by the persistence layer.
type CRMAccount struct {
	shared.TenantAggregateRoot
	Platform    CRMPlatformCode
	Credentials string
	Status      AccountStatus
	LastError   string
	LastErrorAt *time.Time
}

// NewCRMAccount connects a tenant to a CRM platform
func NewCRMAccount(tenantID uuid.UUID, platform CRMPlatformCode, credentials string) (*CRMAccount, error) {
	if !platform.IsValid() {
		return nil, ErrAccountInvalidPlatform
	}
	if !isValidCredentialsJSON(credentials) {
		return nil, ErrAccountCredentialsInvalid
	}

	a := &CRMAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Platform:            platform,
		Credentials:         credentials,
		Status:              AccountStatusActive,
	}

	a.AddDomainEvent(NewCRMAccountConnectedEvent(a))

	return a, nil
}

// UpdateCredentials replaces the account's secrets and recovers it from
// the error state
func (a *CRMAccount) UpdateCredentials(credentials string) error {
	if !isValidCredentialsJSON(credentials) {
		return ErrAccountCredentialsInvalid
	}

	a.Credentials = credentials
	if a.Status == AccountStatusError {
		a.Status = AccountStatusActive
	}
	a.LastError = ""
	a.LastErrorAt = nil
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// Activate resumes lead syncing through the account
func (a *CRMAccount) Activate() error {
	if a.Status == AccountStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "CRM account is already active")
	}

	a.Status = AccountStatusActive
	a.LastError = ""
	a.LastErrorAt = nil
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// Deactivate stops lead syncing through the account
func (a *CRMAccount) Deactivate() error {
	if a.Status == AccountStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "CRM account is already inactive")
	}

	a.Status = AccountStatusInactive
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// RecordError puts the account into the error state with the reason
func (a *CRMAccount) RecordError(message string) {
	if len(message) > maxAccountErrorLength {
		message = message[:maxAccountErrorLength]
	}

	now := time.Now()
	a.Status = AccountStatusError
	a.LastError = message
	a.LastErrorAt = &now
	a.UpdatedAt = now
	a.IncrementVersion()

	a.AddDomainEvent(NewCRMAccountErroredEvent(a))
}

// IsActive returns true if the account syncs leads
func (a *CRMAccount) IsActive() bool {
	return a.Status == AccountStatusActive
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func validateShopDomain(shopDomain string) error {
	shopDomain = strings.TrimSpace(shopDomain)
	if shopDomain == "" {
		return ErrAccountShopDomainRequired
	}
	if len(shopDomain) > 255 || strings.ContainsAny(shopDomain, " \t") || !strings.Contains(shopDomain, ".") {
		return ErrAccountShopDomainInvalid
	}
	return nil
}

func isValidCredentialsJSON(credentials string) bool {
	return strings.TrimSpace(credentials) != "" && json.Valid([]byte(credentials))
}
