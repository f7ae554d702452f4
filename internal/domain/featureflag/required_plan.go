package featureflag

import (
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RequiredPlan represents the minimum subscription plan required to access a feature flag.
// Plans form a hierarchy: free < basic < pro < enterprise.
// RequiredPlanNone means the flag has no plan restriction.
type RequiredPlan string

const (
	// RequiredPlanNone indicates no plan restriction
	RequiredPlanNone RequiredPlan = "none"
	// RequiredPlanFree requires at least the free plan
	RequiredPlanFree RequiredPlan = "free"
	// RequiredPlanBasic requires at least the basic plan
	RequiredPlanBasic RequiredPlan = "basic"
	// RequiredPlanPro requires at least the pro plan
	RequiredPlanPro RequiredPlan = "pro"
	// RequiredPlanEnterprise requires the enterprise plan
	RequiredPlanEnterprise RequiredPlan = "enterprise"
)

// planLevels defines the ordering of plans for requirement comparison.
// Unknown tenant plans default to the free level.
var planLevels = map[RequiredPlan]int{
	RequiredPlanNone:       0,
	RequiredPlanFree:       1,
	RequiredPlanBasic:      2,
	RequiredPlanPro:        3,
	RequiredPlanEnterprise: 4,
}

// AllRequiredPlans returns all valid required plan values
func AllRequiredPlans() []RequiredPlan {
	return []RequiredPlan{
		RequiredPlanNone,
		RequiredPlanFree,
		RequiredPlanBasic,
		RequiredPlanPro,
		RequiredPlanEnterprise,
	}
}

// IsValid returns true if the required plan is a known value
func (p RequiredPlan) IsValid() bool {
	switch p {
	case RequiredPlanNone, RequiredPlanFree, RequiredPlanBasic, RequiredPlanPro, RequiredPlanEnterprise:
		return true
	default:
		return false
	}
}

// String returns the string representation of the required plan
func (p RequiredPlan) String() string {
	return string(p)
}

// MeetsPlanRequirement returns true if the given tenant plan satisfies this
// plan requirement. The comparison is case-insensitive; unknown or empty
// tenant plans default to the free level.
func (p RequiredPlan) MeetsPlanRequirement(tenantPlan string) bool {
	if p == RequiredPlanNone || p == "" {
		return true
	}

	requiredLevel, ok := planLevels[p]
	if !ok {
		// Unknown requirement: treat as no restriction
		return true
	}

	tenantLevel, ok := planLevels[RequiredPlan(strings.ToLower(tenantPlan))]
	if !ok {
		// Unknown tenant plan defaults to free
		tenantLevel = planLevels[RequiredPlanFree]
	}

	return tenantLevel >= requiredLevel
}

// GetRequiredPlan returns the minimum plan required to access the flag.
// A flag without an explicit requirement has no plan restriction.
func (f *FeatureFlag) GetRequiredPlan() RequiredPlan {
	if f.RequiredPlan == "" {
		return RequiredPlanNone
	}
	return f.RequiredPlan
}

// HasPlanRestriction returns true if the flag requires a specific plan
func (f *FeatureFlag) HasPlanRestriction() bool {
	return f.GetRequiredPlan() != RequiredPlanNone
}

// MeetsPlanRequirement returns true if the given tenant plan satisfies the
// flag's plan requirement
func (f *FeatureFlag) MeetsPlanRequirement(tenantPlan string) bool {
	return f.GetRequiredPlan().MeetsPlanRequirement(tenantPlan)
}

// SetRequiredPlan sets the minimum plan required to access the flag
func (f *FeatureFlag) SetRequiredPlan(plan RequiredPlan, updatedBy *uuid.UUID) error {
	if f.Status == FlagStatusArchived {
		return shared.NewDomainError("CANNOT_UPDATE", "Cannot update an archived flag")
	}
	if !plan.IsValid() {
		return shared.NewDomainError("INVALID_REQUIRED_PLAN", "Invalid required plan")
	}

	f.RequiredPlan = plan
	f.UpdatedBy = updatedBy
	f.UpdatedAt = time.Now()
	f.IncrementVersion()

	f.AddDomainEvent(NewFlagUpdatedEvent(f))

	return nil
}
