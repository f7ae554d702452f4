package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/backend/internal/domain/shared"
)

// FeatureKey represents a unique identifier for a feature
type FeatureKey string

// Predefined feature keys for the system
const (
	// Core features
	FeatureKnowledgeBase  FeatureKey = "knowledge_base"
	FeatureWebCrawler     FeatureKey = "web_crawler"
	FeatureModelSelection FeatureKey = "model_selection"
	FeatureAPIAccess      FeatureKey = "api_access"
	FeatureAuditLog       FeatureKey = "audit_log"
	FeatureDataExport     FeatureKey = "data_export"

	// Channel features
	FeatureWebWidget         FeatureKey = "web_widget"
	FeatureMessagingChannels FeatureKey = "messaging_channels"
	FeatureWidgetBranding    FeatureKey = "widget_branding"

	// Conversation features
	FeatureHumanHandoff          FeatureKey = "human_handoff"
	FeatureReviewCollection      FeatureKey = "review_collection"
	FeatureConversationAnalytics FeatureKey = "conversation_analytics"

	// Integration features
	FeatureCommerceIntegrations FeatureKey = "commerce_integrations"
	FeatureCRMIntegrations      FeatureKey = "crm_integrations"

	// Support tiers
	FeaturePrioritySupport  FeatureKey = "priority_support"
	FeatureDedicatedSupport FeatureKey = "dedicated_support"
	FeatureSLA              FeatureKey = "sla"
)

// PlanFeature represents a feature mapping for a subscription plan
// It defines which features are available for each plan and their limits
type PlanFeature struct {
	ID          uuid.UUID
	PlanID      TenantPlan // The subscription plan (free, starter, pro, enterprise)
	FeatureKey  FeatureKey // Unique identifier for the feature
	Enabled     bool       // Whether the feature is enabled for this plan
	Limit       *int       // Optional limit for the feature (nil = unlimited)
	Description string     // Human-readable description of the feature
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPlanFeature creates a new PlanFeature with the given parameters
func NewPlanFeature(planID TenantPlan, featureKey FeatureKey, enabled bool, description string) *PlanFeature {
	now := time.Now()
	return &PlanFeature{
		ID:          uuid.New(),
		PlanID:      planID,
		FeatureKey:  featureKey,
		Enabled:     enabled,
		Limit:       nil,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewPlanFeatureWithLimit creates a new PlanFeature with a limit
func NewPlanFeatureWithLimit(planID TenantPlan, featureKey FeatureKey, enabled bool, limit int, description string) *PlanFeature {
	pf := NewPlanFeature(planID, featureKey, enabled, description)
	pf.Limit = &limit
	return pf
}

// NewValidatedPlanFeature creates a new PlanFeature after validating the plan and feature key
func NewValidatedPlanFeature(planID TenantPlan, featureKey FeatureKey, enabled bool, description string) (*PlanFeature, error) {
	if err := validateTenantPlan(planID); err != nil {
		return nil, err
	}
	if !IsValidFeatureKey(featureKey) {
		return nil, shared.NewDomainError("INVALID_FEATURE_KEY", "Invalid feature key")
	}
	return NewPlanFeature(planID, featureKey, enabled, description), nil
}

// NewValidatedPlanFeatureWithLimit creates a limited PlanFeature after validating all inputs
func NewValidatedPlanFeatureWithLimit(planID TenantPlan, featureKey FeatureKey, enabled bool, limit int, description string) (*PlanFeature, error) {
	if limit < 0 {
		return nil, shared.NewDomainError("INVALID_LIMIT", "Feature limit cannot be negative")
	}
	pf, err := NewValidatedPlanFeature(planID, featureKey, enabled, description)
	if err != nil {
		return nil, err
	}
	pf.Limit = &limit
	return pf, nil
}

// SetLimit sets the limit for this feature
func (pf *PlanFeature) SetLimit(limit int) error {
	if limit < 0 {
		return shared.NewDomainError("INVALID_LIMIT", "Feature limit cannot be negative")
	}
	pf.Limit = &limit
	pf.UpdatedAt = time.Now()
	return nil
}

// ClearLimit removes the limit for this feature (makes it unlimited)
func (pf *PlanFeature) ClearLimit() {
	pf.Limit = nil
	pf.UpdatedAt = time.Now()
}

// Enable enables this feature
func (pf *PlanFeature) Enable() {
	pf.Enabled = true
	pf.UpdatedAt = time.Now()
}

// Disable disables this feature
func (pf *PlanFeature) Disable() {
	pf.Enabled = false
	pf.UpdatedAt = time.Now()
}

// IsUnlimited returns true if the feature has no limit
func (pf *PlanFeature) IsUnlimited() bool {
	return pf.Limit == nil
}

// GetLimit returns the limit value, or -1 if unlimited
func (pf *PlanFeature) GetLimit() int {
	if pf.Limit == nil {
		return -1
	}
	return *pf.Limit
}

// PlanFeatureRepository defines the interface for plan feature persistence
type PlanFeatureRepository interface {
	// FindByID finds a plan feature by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*PlanFeature, error)

	// FindByPlan finds all features for a specific plan
	FindByPlan(ctx context.Context, planID TenantPlan) ([]PlanFeature, error)

	// FindByPlanAndFeature finds a specific feature for a plan
	FindByPlanAndFeature(ctx context.Context, planID TenantPlan, featureKey FeatureKey) (*PlanFeature, error)

	// FindEnabledByPlan finds all enabled features for a plan
	FindEnabledByPlan(ctx context.Context, planID TenantPlan) ([]PlanFeature, error)

	// HasFeature checks if a plan has a specific feature enabled
	HasFeature(ctx context.Context, planID TenantPlan, featureKey FeatureKey) (bool, error)

	// GetFeatureLimit returns the limit for a feature in a plan (nil if unlimited or not found)
	GetFeatureLimit(ctx context.Context, planID TenantPlan, featureKey FeatureKey) (*int, error)

	// Save creates or updates a plan feature
	Save(ctx context.Context, feature *PlanFeature) error

	// SaveBatch creates or updates multiple plan features
	SaveBatch(ctx context.Context, features []PlanFeature) error

	// Delete deletes a plan feature
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByPlan deletes all features for a plan
	DeleteByPlan(ctx context.Context, planID TenantPlan) error
}

// DefaultPlanFeatures returns the default feature set for a given plan
// This defines which features are available for each subscription tier
func DefaultPlanFeatures(plan TenantPlan) []PlanFeature {
	switch plan {
	case TenantPlanFree:
		return defaultFreePlanFeatures()
	case TenantPlanStarter:
		return defaultStarterPlanFeatures()
	case TenantPlanPro:
		return defaultProPlanFeatures()
	case TenantPlanEnterprise:
		return defaultEnterprisePlanFeatures()
	default:
		return defaultFreePlanFeatures()
	}
}

// defaultFreePlanFeatures returns features for the free plan
func defaultFreePlanFeatures() []PlanFeature {
	plan := TenantPlanFree
	features := []PlanFeature{
		// Core features - knowledge base only
		*NewPlanFeature(plan, FeatureKnowledgeBase, true, "Ground replies in uploaded documents"),
		*NewPlanFeature(plan, FeatureWebCrawler, false, "Ingest documents from URLs"),
		*NewPlanFeature(plan, FeatureModelSelection, false, "Choose AI provider and model per bot"),
		*NewPlanFeature(plan, FeatureAPIAccess, false, "API access for integrations"),
		*NewPlanFeature(plan, FeatureAuditLog, false, "Audit log tracking"),
		*NewPlanFeature(plan, FeatureDataExport, true, "Export conversation transcripts"),

		// Channel features - widget only
		*NewPlanFeature(plan, FeatureWebWidget, true, "Embeddable chat widget"),
		*NewPlanFeature(plan, FeatureMessagingChannels, false, "WhatsApp, Telegram, Slack and Discord channels"),
		*NewPlanFeature(plan, FeatureWidgetBranding, false, "Remove hosted branding from the widget"),

		// Conversation features - none
		*NewPlanFeature(plan, FeatureHumanHandoff, false, "Hand conversations off to a human agent"),
		*NewPlanFeature(plan, FeatureReviewCollection, false, "Collect visitor reviews after chats"),
		*NewPlanFeature(plan, FeatureConversationAnalytics, false, "Conversation volume and quality analytics"),

		// Integration features - none
		*NewPlanFeature(plan, FeatureCommerceIntegrations, false, "Shopify and WooCommerce store lookups"),
		*NewPlanFeature(plan, FeatureCRMIntegrations, false, "HubSpot lead capture"),

		// Support tiers - none
		*NewPlanFeature(plan, FeaturePrioritySupport, false, "Priority support"),
		*NewPlanFeature(plan, FeatureDedicatedSupport, false, "Dedicated support manager"),
		*NewPlanFeature(plan, FeatureSLA, false, "Service level agreement"),
	}
	return features
}

// defaultStarterPlanFeatures returns features for the starter plan
func defaultStarterPlanFeatures() []PlanFeature {
	plan := TenantPlanStarter
	features := []PlanFeature{
		// Core features - crawling unlocked with a page cap
		*NewPlanFeature(plan, FeatureKnowledgeBase, true, "Ground replies in uploaded documents"),
		*NewPlanFeatureWithLimit(plan, FeatureWebCrawler, true, 25, "Ingest documents from URLs (25 pages per crawl)"),
		*NewPlanFeature(plan, FeatureModelSelection, false, "Choose AI provider and model per bot"),
		*NewPlanFeature(plan, FeatureAPIAccess, false, "API access for integrations"),
		*NewPlanFeature(plan, FeatureAuditLog, true, "Audit log tracking"),
		*NewPlanFeature(plan, FeatureDataExport, true, "Export conversation transcripts"),

		// Channel features - messaging unlocked
		*NewPlanFeature(plan, FeatureWebWidget, true, "Embeddable chat widget"),
		*NewPlanFeature(plan, FeatureMessagingChannels, true, "WhatsApp, Telegram, Slack and Discord channels"),
		*NewPlanFeature(plan, FeatureWidgetBranding, false, "Remove hosted branding from the widget"),

		// Conversation features - handoff and reviews
		*NewPlanFeature(plan, FeatureHumanHandoff, true, "Hand conversations off to a human agent"),
		*NewPlanFeature(plan, FeatureReviewCollection, true, "Collect visitor reviews after chats"),
		*NewPlanFeature(plan, FeatureConversationAnalytics, false, "Conversation volume and quality analytics"),

		// Integration features - none
		*NewPlanFeature(plan, FeatureCommerceIntegrations, false, "Shopify and WooCommerce store lookups"),
		*NewPlanFeature(plan, FeatureCRMIntegrations, false, "HubSpot lead capture"),

		// Support tiers - none
		*NewPlanFeature(plan, FeaturePrioritySupport, false, "Priority support"),
		*NewPlanFeature(plan, FeatureDedicatedSupport, false, "Dedicated support manager"),
		*NewPlanFeature(plan, FeatureSLA, false, "Service level agreement"),
	}
	return features
}

// defaultProPlanFeatures returns features for the pro plan
func defaultProPlanFeatures() []PlanFeature {
	plan := TenantPlanPro
	features := []PlanFeature{
		// Core features - all enabled, crawl cap raised
		*NewPlanFeature(plan, FeatureKnowledgeBase, true, "Ground replies in uploaded documents"),
		*NewPlanFeatureWithLimit(plan, FeatureWebCrawler, true, 200, "Ingest documents from URLs (200 pages per crawl)"),
		*NewPlanFeature(plan, FeatureModelSelection, true, "Choose AI provider and model per bot"),
		*NewPlanFeature(plan, FeatureAPIAccess, true, "API access for integrations"),
		*NewPlanFeature(plan, FeatureAuditLog, true, "Audit log tracking"),
		*NewPlanFeature(plan, FeatureDataExport, true, "Export conversation transcripts"),

		// Channel features - all but branding
		*NewPlanFeature(plan, FeatureWebWidget, true, "Embeddable chat widget"),
		*NewPlanFeature(plan, FeatureMessagingChannels, true, "WhatsApp, Telegram, Slack and Discord channels"),
		*NewPlanFeature(plan, FeatureWidgetBranding, false, "Remove hosted branding from the widget"),

		// Conversation features - all enabled
		*NewPlanFeature(plan, FeatureHumanHandoff, true, "Hand conversations off to a human agent"),
		*NewPlanFeature(plan, FeatureReviewCollection, true, "Collect visitor reviews after chats"),
		*NewPlanFeature(plan, FeatureConversationAnalytics, true, "Conversation volume and quality analytics"),

		// Integration features - all enabled
		*NewPlanFeature(plan, FeatureCommerceIntegrations, true, "Shopify and WooCommerce store lookups"),
		*NewPlanFeature(plan, FeatureCRMIntegrations, true, "HubSpot lead capture"),

		// Support tiers - priority only
		*NewPlanFeature(plan, FeaturePrioritySupport, true, "Priority support"),
		*NewPlanFeature(plan, FeatureDedicatedSupport, false, "Dedicated support manager"),
		*NewPlanFeature(plan, FeatureSLA, false, "Service level agreement"),
	}
	return features
}

// defaultEnterprisePlanFeatures returns features for the enterprise plan
func defaultEnterprisePlanFeatures() []PlanFeature {
	plan := TenantPlanEnterprise
	features := []PlanFeature{
		// Core features - all enabled, unlimited crawling
		*NewPlanFeature(plan, FeatureKnowledgeBase, true, "Ground replies in uploaded documents"),
		*NewPlanFeature(plan, FeatureWebCrawler, true, "Ingest documents from URLs"),
		*NewPlanFeature(plan, FeatureModelSelection, true, "Choose AI provider and model per bot"),
		*NewPlanFeature(plan, FeatureAPIAccess, true, "API access for integrations"),
		*NewPlanFeature(plan, FeatureAuditLog, true, "Audit log tracking"),
		*NewPlanFeature(plan, FeatureDataExport, true, "Export conversation transcripts"),

		// Channel features - all enabled
		*NewPlanFeature(plan, FeatureWebWidget, true, "Embeddable chat widget"),
		*NewPlanFeature(plan, FeatureMessagingChannels, true, "WhatsApp, Telegram, Slack and Discord channels"),
		*NewPlanFeature(plan, FeatureWidgetBranding, true, "Remove hosted branding from the widget"),

		// Conversation features - all enabled
		*NewPlanFeature(plan, FeatureHumanHandoff, true, "Hand conversations off to a human agent"),
		*NewPlanFeature(plan, FeatureReviewCollection, true, "Collect visitor reviews after chats"),
		*NewPlanFeature(plan, FeatureConversationAnalytics, true, "Conversation volume and quality analytics"),

		// Integration features - all enabled
		*NewPlanFeature(plan, FeatureCommerceIntegrations, true, "Shopify and WooCommerce store lookups"),
		*NewPlanFeature(plan, FeatureCRMIntegrations, true, "HubSpot lead capture"),

		// Support tiers - all enabled
		*NewPlanFeature(plan, FeaturePrioritySupport, true, "Priority support"),
		*NewPlanFeature(plan, FeatureDedicatedSupport, true, "Dedicated support manager"),
		*NewPlanFeature(plan, FeatureSLA, true, "Service level agreement"),
	}
	return features
}

// GetAllFeatureKeys returns all defined feature keys
func GetAllFeatureKeys() []FeatureKey {
	return []FeatureKey{
		FeatureKnowledgeBase,
		FeatureWebCrawler,
		FeatureModelSelection,
		FeatureAPIAccess,
		FeatureAuditLog,
		FeatureDataExport,
		FeatureWebWidget,
		FeatureMessagingChannels,
		FeatureWidgetBranding,
		FeatureHumanHandoff,
		FeatureReviewCollection,
		FeatureConversationAnalytics,
		FeatureCommerceIntegrations,
		FeatureCRMIntegrations,
		FeaturePrioritySupport,
		FeatureDedicatedSupport,
		FeatureSLA,
	}
}

// IsValidFeatureKey checks if a feature key is valid
func IsValidFeatureKey(key FeatureKey) bool {
	for _, k := range GetAllFeatureKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// PlanHasFeature is a helper function to check if a plan has a specific feature enabled
// based on the default feature definitions
func PlanHasFeature(plan TenantPlan, featureKey FeatureKey) bool {
	features := DefaultPlanFeatures(plan)
	for _, f := range features {
		if f.FeatureKey == featureKey {
			return f.Enabled
		}
	}
	return false
}

// GetPlanFeatureLimit returns the limit for a feature in a plan based on default definitions
// Returns nil if the feature is unlimited or not found
func GetPlanFeatureLimit(plan TenantPlan, featureKey FeatureKey) *int {
	features := DefaultPlanFeatures(plan)
	for _, f := range features {
		if f.FeatureKey == featureKey {
			return f.Limit
		}
	}
	return nil
}
