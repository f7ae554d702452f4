package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chatforge/backend/internal/domain/integration"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxProductResults bounds a product search so the system prompt stays
// small
const maxProductResults = 3

// CommerceContextService turns a user message into live store context
// for the reply engine. It detects what the message asks for, queries
// the tenant's connected commerce platforms and renders the result as
// a system prompt fragment. Platform failures degrade to a note that
// live data is unavailable, the bot still answers.
type CommerceContextService struct {
	commerceRepo integration.CommerceAccountRepository
	platforms    integration.CommercePlatformRegistry
	logger       *zap.Logger
}

// NewCommerceContextService creates a new commerce context service
func NewCommerceContextService(
	commerceRepo integration.CommerceAccountRepository,
	platforms integration.CommercePlatformRegistry,
	logger *zap.Logger,
) *CommerceContextService {
	return &CommerceContextService{
		commerceRepo: commerceRepo,
		platforms:    platforms,
		logger:       logger,
	}
}

// BuildContext returns a system prompt fragment with live commerce data
// for the query, or an empty string when the query asks for none or the
// tenant has no commerce platform connected.
func (s *CommerceContextService) BuildContext(ctx context.Context, tenantID uuid.UUID, query string) (string, error) {
	intent := integration.DetectIntent(query)
	if intent.Type == integration.IntentNone {
		return "", nil
	}

	accounts, err := s.commerceRepo.FindActive(ctx, tenantID)
	if err != nil {
		s.logger.Error("Failed to load commerce accounts",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return "", nil
	}
	if len(accounts) == 0 {
		return "", nil
	}

	switch intent.Type {
	case integration.IntentOrderStatus:
		return s.orderContext(ctx, accounts, intent.OrderRef), nil
	case integration.IntentProductSearch:
		return s.productContext(ctx, accounts, intent.Query), nil
	default:
		return "", nil
	}
}

// orderContext looks the order reference up on each connected platform
// in turn and renders the first match
func (s *CommerceContextService) orderContext(ctx context.Context, accounts []*integration.CommerceAccount, orderRef string) string {
	failures := 0
	for _, account := range accounts {
		platform, err := s.platforms.GetPlatform(account.Platform)
		if err != nil {
			s.logger.Warn("No adapter for connected commerce platform",
				zap.String("platform", string(account.Platform)))
			continue
		}

		order, err := platform.GetOrder(ctx, account, orderRef)
		if err != nil {
			if errors.Is(err, integration.ErrOrderNotFound) {
				continue
			}
			failures++
			s.recordLookupFailure(ctx, account, err)
			continue
		}

		return renderOrder(account, order)
	}

	if failures > 0 {
		return "The customer asked about order " + orderRef + ", but the live order lookup is " +
			"currently unavailable. Apologize, and ask them to check back shortly or contact support."
	}

	return "The customer asked about order " + orderRef + ", but no such order was found in the " +
		"connected store. Ask them to double-check the order number."
}

// productContext searches connected platforms and renders the first
// non-empty result set
func (s *CommerceContextService) productContext(ctx context.Context, accounts []*integration.CommerceAccount, query string) string {
	failures := 0
	for _, account := range accounts {
		platform, err := s.platforms.GetPlatform(account.Platform)
		if err != nil {
			s.logger.Warn("No adapter for connected commerce platform",
				zap.String("platform", string(account.Platform)))
			continue
		}

		products, err := platform.SearchProducts(ctx, account, query, maxProductResults)
		if err != nil {
			failures++
			s.recordLookupFailure(ctx, account, err)
			continue
		}
		if len(products) == 0 {
			continue
		}

		return renderProducts(products)
	}

	if failures > 0 {
		return "The customer is asking about products, but the live catalog lookup is currently " +
			"unavailable. Answer from the knowledge base if possible and say current pricing and " +
			"stock could not be checked."
	}

	return ""
}

// recordLookupFailure flips the account into the error state so the
// dashboard surfaces the broken connection. Best effort, the reply
// proceeds either way.
func (s *CommerceContextService) recordLookupFailure(ctx context.Context, account *integration.CommerceAccount, cause error) {
	s.logger.Warn("Commerce platform lookup failed",
		zap.String("account_id", account.ID.String()),
		zap.String("platform", string(account.Platform)),
		zap.Error(cause))

	account.RecordError(cause.Error())
	if err := s.commerceRepo.Update(ctx, account); err != nil {
		s.logger.Error("Failed to record commerce account error",
			zap.String("account_id", account.ID.String()),
			zap.Error(err))
	}
}

func renderOrder(account *integration.CommerceAccount, order *integration.OrderStatus) string {
	var sb strings.Builder
	sb.WriteString("Live order data from ")
	sb.WriteString(account.Platform.DisplayName())
	sb.WriteString(". Use it to answer the customer's order question.\n")

	fmt.Fprintf(&sb, "Order %s: %s", order.Number, order.Status)
	if !order.Total.IsZero() {
		fmt.Fprintf(&sb, ", total %s %s", order.Total.StringFixed(2), order.Currency)
	}
	if order.Tracking != "" {
		fmt.Fprintf(&sb, ", tracking number %s", order.Tracking)
	}
	if order.PlacedAt != nil {
		fmt.Fprintf(&sb, ", placed %s", order.PlacedAt.Format("January 2, 2006"))
	}
	sb.WriteString(".")

	return sb.String()
}

func renderProducts(products []integration.Product) string {
	var sb strings.Builder
	sb.WriteString("Live product data from the connected store. Quote prices and availability from it.\n")

	for _, p := range products {
		fmt.Fprintf(&sb, "- %s: %s %s", p.Title, p.Price.StringFixed(2), p.Currency)
		if p.InStock {
			sb.WriteString(", in stock")
		} else {
			sb.WriteString(", out of stock")
		}
		if p.URL != "" {
			fmt.Fprintf(&sb, " (%s)", p.URL)
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}
