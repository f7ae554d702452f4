package identity

import (
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusInactive  TenantStatus = "inactive"
	TenantStatusSuspended TenantStatus = "suspended" // Suspended due to payment/violation issues
	TenantStatusTrial     TenantStatus = "trial"     // Trial period
)

// TenantPlan represents the subscription plan of a tenant
type TenantPlan string

const (
	TenantPlanFree       TenantPlan = "free"
	TenantPlanStarter    TenantPlan = "starter"
	TenantPlanPro        TenantPlan = "pro"
	TenantPlanEnterprise TenantPlan = "enterprise"
)

// Unlimited marks a plan limit as unbounded
const Unlimited = -1

// TenantConfig holds configurable settings for a tenant.
// Limit fields use -1 to mean unlimited.
type TenantConfig struct {
	MaxUsers           int    `json:"max_users"`             // Maximum number of users allowed
	MaxBots            int    `json:"max_bots"`              // Maximum number of bots
	MaxDocuments       int    `json:"max_documents"`         // Maximum knowledge base documents
	MaxMessagesPerMonth int   `json:"max_messages_per_month"` // Monthly AI message allowance
	MaxChannels        int    `json:"max_channels"`          // Maximum connected channel accounts
	AllowAPIAccess     bool   `json:"allow_api_access"`      // Whether the public API is enabled
	RemoveBranding     bool   `json:"remove_branding"`       // Whether widget branding can be removed
	Features           string `json:"features"`              // JSON object of enabled features
	Settings           string `json:"settings"`              // JSON object of tenant settings
	Timezone           string `json:"timezone"`              // Tenant timezone
	Locale             string `json:"locale"`                // Tenant locale (e.g., en-US, de-DE)
}

// DefaultTenantConfig returns the default configuration for a new tenant
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		MaxUsers:            2,
		MaxBots:             1,
		MaxDocuments:        10,
		MaxMessagesPerMonth: 200,
		MaxChannels:         1,
		AllowAPIAccess:      false,
		RemoveBranding:      false,
		Features:            "{}",
		Settings:            "{}",
		Timezone:            "UTC",
		Locale:              "en-US",
	}
}

// Tenant represents a tenant/organization in the multi-tenant system
// It is the aggregate root for tenant-related operations
type Tenant struct {
	shared.BaseAggregateRoot
	Code                 string       `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name                 string       `gorm:"type:varchar(200);not null"`
	ShortName            string       `gorm:"type:varchar(100)"`
	Status               TenantStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Plan                 TenantPlan   `gorm:"type:varchar(20);not null;default:'free'"`
	ContactName          string       `gorm:"type:varchar(100)"`
	ContactPhone         string       `gorm:"type:varchar(50)"`
	ContactEmail         string       `gorm:"type:varchar(200)"`
	LogoURL              string       `gorm:"type:varchar(500)"`
	Domain               string       `gorm:"type:varchar(200);uniqueIndex"` // Custom subdomain
	StripeCustomerID     string       `gorm:"type:varchar(100);index"`
	StripeSubscriptionID string       `gorm:"type:varchar(100);index"`
	ExpiresAt            *time.Time   `gorm:"index"` // Subscription expiry date
	TrialEndsAt          *time.Time   // Trial period end date
	Config               TenantConfig `gorm:"embedded;embeddedPrefix:config_"`
	Notes                string       `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new tenant with required fields
func NewTenant(code, name string) (*Tenant, error) {
	if err := validateTenantCode(code); err != nil {
		return nil, err
	}
	if err := validateTenantName(name); err != nil {
		return nil, err
	}

	tenant := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Status:            TenantStatusActive,
		Plan:              TenantPlanFree,
		Config:            DefaultTenantConfig(),
	}

	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

// NewTrialTenant creates a new tenant in trial status.
// Trial tenants get pro-level limits until the trial ends.
func NewTrialTenant(code, name string, trialDays int) (*Tenant, error) {
	if trialDays <= 0 {
		return nil, shared.NewDomainError("INVALID_TRIAL_DAYS", "Trial days must be positive")
	}

	tenant, err := NewTenant(code, name)
	if err != nil {
		return nil, err
	}

	tenant.Status = TenantStatusTrial
	trialEnds := time.Now().AddDate(0, 0, trialDays)
	tenant.TrialEndsAt = &trialEnds
	tenant.updateConfigForPlan(TenantPlanPro)

	return tenant, nil
}

// Update updates the tenant's basic information
func (t *Tenant) Update(name, shortName string) error {
	if err := validateTenantName(name); err != nil {
		return err
	}
	if shortName != "" && len(shortName) > 100 {
		return shared.NewDomainError("INVALID_SHORT_NAME", "Short name cannot exceed 100 characters")
	}

	t.Name = name
	t.ShortName = shortName
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantUpdatedEvent(t))

	return nil
}

// SetContact sets the tenant's contact information
func (t *Tenant) SetContact(contactName, phone, email string) error {
	if contactName != "" && len(contactName) > 100 {
		return shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot exceed 100 characters")
	}
	if phone != "" && len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	if email != "" && len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}

	t.ContactName = contactName
	t.ContactPhone = phone
	t.ContactEmail = email
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetLogoURL sets the tenant's logo URL
func (t *Tenant) SetLogoURL(url string) error {
	if url != "" && len(url) > 500 {
		return shared.NewDomainError("INVALID_URL", "Logo URL cannot exceed 500 characters")
	}

	t.LogoURL = url
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetDomain sets the tenant's custom domain/subdomain
func (t *Tenant) SetDomain(domain string) error {
	if domain != "" && len(domain) > 200 {
		return shared.NewDomainError("INVALID_DOMAIN", "Domain cannot exceed 200 characters")
	}
	if domain != "" {
		domain = strings.ToLower(strings.TrimSpace(domain))
	}

	t.Domain = domain
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetStripeCustomer links the tenant to a Stripe customer
func (t *Tenant) SetStripeCustomer(customerID string) {
	t.StripeCustomerID = customerID
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// SetStripeSubscription links the tenant to a Stripe subscription
func (t *Tenant) SetStripeSubscription(subscriptionID string) {
	t.StripeSubscriptionID = subscriptionID
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// ClearStripeSubscription removes the Stripe subscription link
// (e.g., after cancellation)
func (t *Tenant) ClearStripeSubscription() {
	t.StripeSubscriptionID = ""
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// SetPlan sets the tenant's subscription plan
func (t *Tenant) SetPlan(plan TenantPlan) error {
	if err := validateTenantPlan(plan); err != nil {
		return err
	}

	oldPlan := t.Plan
	t.Plan = plan
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	// If upgrading from trial, clear trial status
	if t.Status == TenantStatusTrial && plan != TenantPlanFree {
		t.Status = TenantStatusActive
		t.TrialEndsAt = nil
	}

	// Update config limits based on plan
	t.updateConfigForPlan(plan)

	t.AddDomainEvent(NewTenantPlanChangedEvent(t, oldPlan, plan))

	return nil
}

// updateConfigForPlan updates configuration limits based on the plan
func (t *Tenant) updateConfigForPlan(plan TenantPlan) {
	switch plan {
	case TenantPlanFree:
		t.Config.MaxUsers = 2
		t.Config.MaxBots = 1
		t.Config.MaxDocuments = 10
		t.Config.MaxMessagesPerMonth = 200
		t.Config.MaxChannels = 1
		t.Config.AllowAPIAccess = false
		t.Config.RemoveBranding = false
	case TenantPlanStarter:
		t.Config.MaxUsers = 5
		t.Config.MaxBots = 3
		t.Config.MaxDocuments = 100
		t.Config.MaxMessagesPerMonth = 2000
		t.Config.MaxChannels = 2
		t.Config.AllowAPIAccess = false
		t.Config.RemoveBranding = false
	case TenantPlanPro:
		t.Config.MaxUsers = 20
		t.Config.MaxBots = 10
		t.Config.MaxDocuments = 1000
		t.Config.MaxMessagesPerMonth = 20000
		t.Config.MaxChannels = 5
		t.Config.AllowAPIAccess = true
		t.Config.RemoveBranding = true
	case TenantPlanEnterprise:
		t.Config.MaxUsers = Unlimited
		t.Config.MaxBots = Unlimited
		t.Config.MaxDocuments = Unlimited
		t.Config.MaxMessagesPerMonth = Unlimited
		t.Config.MaxChannels = Unlimited
		t.Config.AllowAPIAccess = true
		t.Config.RemoveBranding = true
	}
}

// SetExpiration sets the subscription expiration date
func (t *Tenant) SetExpiration(expiresAt time.Time) {
	t.ExpiresAt = &expiresAt
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// ClearExpiration clears the expiration date (e.g., for lifetime plans)
func (t *Tenant) ClearExpiration() {
	t.ExpiresAt = nil
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// UpdateConfig updates the tenant's configuration
func (t *Tenant) UpdateConfig(config TenantConfig) error {
	if config.MaxUsers < Unlimited {
		return shared.NewDomainError("INVALID_MAX_USERS", "Max users must be -1 (unlimited) or non-negative")
	}
	if config.MaxBots < Unlimited {
		return shared.NewDomainError("INVALID_MAX_BOTS", "Max bots must be -1 (unlimited) or non-negative")
	}
	if config.MaxDocuments < Unlimited {
		return shared.NewDomainError("INVALID_MAX_DOCUMENTS", "Max documents must be -1 (unlimited) or non-negative")
	}
	if config.MaxMessagesPerMonth < Unlimited {
		return shared.NewDomainError("INVALID_MAX_MESSAGES", "Max messages per month must be -1 (unlimited) or non-negative")
	}
	if config.MaxChannels < Unlimited {
		return shared.NewDomainError("INVALID_MAX_CHANNELS", "Max channels must be -1 (unlimited) or non-negative")
	}

	t.Config = config
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetNotes sets the tenant's notes
func (t *Tenant) SetNotes(notes string) {
	t.Notes = notes
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// Activate activates the tenant
func (t *Tenant) Activate() error {
	if t.Status == TenantStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Tenant is already active")
	}

	oldStatus := t.Status
	t.Status = TenantStatusActive
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusActive))

	return nil
}

// Deactivate deactivates the tenant
func (t *Tenant) Deactivate() error {
	if t.Status == TenantStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Tenant is already inactive")
	}

	oldStatus := t.Status
	t.Status = TenantStatusInactive
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusInactive))

	return nil
}

// Suspend suspends the tenant (e.g., due to payment issues)
func (t *Tenant) Suspend() error {
	if t.Status == TenantStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Tenant is already suspended")
	}

	oldStatus := t.Status
	t.Status = TenantStatusSuspended
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusSuspended))

	return nil
}

// ConvertFromTrial converts a trial tenant to a paid tenant
func (t *Tenant) ConvertFromTrial(plan TenantPlan) error {
	if t.Status != TenantStatusTrial {
		return shared.NewDomainError("NOT_TRIAL", "Tenant is not in trial status")
	}
	if plan == TenantPlanFree {
		return shared.NewDomainError("INVALID_PLAN", "Cannot convert to free plan from trial")
	}

	return t.SetPlan(plan)
}

// ExpireTrial ends the trial period, dropping the tenant back to the
// limits of its actual plan
func (t *Tenant) ExpireTrial() error {
	if t.Status != TenantStatusTrial {
		return shared.NewDomainError("NOT_TRIAL", "Tenant is not in trial status")
	}

	t.Status = TenantStatusActive
	t.TrialEndsAt = nil
	t.updateConfigForPlan(t.Plan)
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, TenantStatusTrial, TenantStatusActive))

	return nil
}

// IsActive returns true if the tenant is active
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// IsInactive returns true if the tenant is inactive
func (t *Tenant) IsInactive() bool {
	return t.Status == TenantStatusInactive
}

// IsSuspended returns true if the tenant is suspended
func (t *Tenant) IsSuspended() bool {
	return t.Status == TenantStatusSuspended
}

// IsTrial returns true if the tenant is in trial period
func (t *Tenant) IsTrial() bool {
	return t.Status == TenantStatusTrial
}

// IsTrialExpired returns true if the trial has expired
func (t *Tenant) IsTrialExpired() bool {
	if t.Status != TenantStatusTrial {
		return false
	}
	if t.TrialEndsAt == nil {
		return false
	}
	return time.Now().After(*t.TrialEndsAt)
}

// IsSubscriptionExpired returns true if the subscription has expired
func (t *Tenant) IsSubscriptionExpired() bool {
	if t.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*t.ExpiresAt)
}

// CanServe returns true if the tenant may serve chat traffic.
// Trial tenants keep serving until the trial expires.
func (t *Tenant) CanServe() bool {
	if t.Status == TenantStatusActive {
		return true
	}
	return t.Status == TenantStatusTrial && !t.IsTrialExpired()
}

// withinLimit reports whether current is below limit, treating
// negative limits as unlimited
func withinLimit(current, limit int) bool {
	if limit < 0 {
		return true
	}
	return current < limit
}

// CanAddUser returns true if the tenant can add more users
func (t *Tenant) CanAddUser(currentUserCount int) bool {
	return withinLimit(currentUserCount, t.Config.MaxUsers)
}

// CanAddBot returns true if the tenant can add more bots
func (t *Tenant) CanAddBot(currentBotCount int) bool {
	return withinLimit(currentBotCount, t.Config.MaxBots)
}

// CanAddDocument returns true if the tenant can add more knowledge documents
func (t *Tenant) CanAddDocument(currentDocumentCount int) bool {
	return withinLimit(currentDocumentCount, t.Config.MaxDocuments)
}

// CanAddChannel returns true if the tenant can connect more channel accounts
func (t *Tenant) CanAddChannel(currentChannelCount int) bool {
	return withinLimit(currentChannelCount, t.Config.MaxChannels)
}

// GetID returns the tenant ID (implements a helper for getting UUID)
func (t *Tenant) GetTenantID() uuid.UUID {
	return t.ID
}

// Validation functions

func validateTenantCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Tenant code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateTenantName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}

func validateTenantPlan(plan TenantPlan) error {
	switch plan {
	case TenantPlanFree, TenantPlanStarter, TenantPlanPro, TenantPlanEnterprise:
		return nil
	default:
		return shared.NewDomainError("INVALID_PLAN", "Invalid tenant plan")
	}
}
