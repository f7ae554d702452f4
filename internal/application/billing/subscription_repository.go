package billing

import (
	"context"
	"fmt"

	infraBilling "github.com/chatforge/backend/internal/infrastructure/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormSubscriptionRepository resolves tenant subscriptions by combining the
// tenants table with live subscription state from Stripe. The subscription
// item ID needed for metered usage reporting only exists on the Stripe side,
// so both lookups go through the adapter.
type GormSubscriptionRepository struct {
	db     *gorm.DB
	stripe *infraBilling.StripeAdapter
	logger *zap.Logger
}

// NewGormSubscriptionRepository creates a new subscription repository.
// A nil Stripe adapter is allowed and makes every lookup return no
// subscription, which disables usage reporting gracefully.
func NewGormSubscriptionRepository(db *gorm.DB, stripe *infraBilling.StripeAdapter, logger *zap.Logger) *GormSubscriptionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormSubscriptionRepository{
		db:     db,
		stripe: stripe,
		logger: logger,
	}
}

// tenantSubscriptionRow is the projection read from the tenants table.
type tenantSubscriptionRow struct {
	ID                   uuid.UUID `gorm:"column:id"`
	Plan                 string    `gorm:"column:plan"`
	StripeSubscriptionID string    `gorm:"column:stripe_subscription_id"`
}

// FindActiveByTenant returns the tenant's active subscription, or nil if the
// tenant has no Stripe subscription or the subscription is not billable.
func (r *GormSubscriptionRepository) FindActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*TenantSubscription, error) {
	if r.stripe == nil {
		return nil, nil
	}

	var row tenantSubscriptionRow
	err := r.db.WithContext(ctx).
		Table("tenants").
		Select("id, plan, stripe_subscription_id").
		Where("id = ?", tenantID).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load tenant %s: %w", tenantID, err)
	}

	if row.StripeSubscriptionID == "" {
		return nil, nil
	}

	return r.resolve(ctx, row)
}

// FindAllActiveWithMeteredBilling returns subscriptions for every active
// tenant that has a Stripe subscription attached. Tenants whose Stripe
// lookup fails are skipped with a warning so one bad subscription does not
// block the reporting run.
func (r *GormSubscriptionRepository) FindAllActiveWithMeteredBilling(ctx context.Context) ([]*TenantSubscription, error) {
	if r.stripe == nil {
		return nil, nil
	}

	var rows []tenantSubscriptionRow
	err := r.db.WithContext(ctx).
		Table("tenants").
		Select("id, plan, stripe_subscription_id").
		Where("stripe_subscription_id <> '' AND status = ? AND deleted_at IS NULL", "active").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribed tenants: %w", err)
	}

	subscriptions := make([]*TenantSubscription, 0, len(rows))
	for _, row := range rows {
		sub, err := r.resolve(ctx, row)
		if err != nil {
			r.logger.Warn("Skipping tenant with unresolvable subscription",
				zap.String("tenant_id", row.ID.String()),
				zap.String("subscription_id", row.StripeSubscriptionID),
				zap.Error(err))
			continue
		}
		if sub != nil {
			subscriptions = append(subscriptions, sub)
		}
	}

	return subscriptions, nil
}

// resolve fetches the subscription state from Stripe and maps it to a
// TenantSubscription. Returns nil for subscriptions that are not active.
func (r *GormSubscriptionRepository) resolve(ctx context.Context, row tenantSubscriptionRow) (*TenantSubscription, error) {
	status, err := r.stripe.GetSubscriptionStatus(ctx, infraBilling.GetSubscriptionStatusInput{
		TenantID:       row.ID,
		SubscriptionID: row.StripeSubscriptionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription status: %w", err)
	}

	if !status.Status.IsActive() {
		return nil, nil
	}

	itemID, err := r.stripe.GetSubscriptionItemID(ctx, row.StripeSubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription item: %w", err)
	}

	return &TenantSubscription{
		TenantID:           row.ID,
		SubscriptionID:     row.StripeSubscriptionID,
		SubscriptionItemID: itemID,
		PlanID:             row.Plan,
		Status:             string(status.Status),
		CurrentPeriodStart: status.CurrentPeriodStart,
		CurrentPeriodEnd:   status.CurrentPeriodEnd,
	}, nil
}
