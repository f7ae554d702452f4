package integration

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformNotConfigured   = errors.New("integration: platform not configured")
	ErrPlatformNotSupported    = errors.New("integration: platform not supported")
	ErrPlatformRequestFailed   = errors.New("integration: platform request failed")
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")
	ErrPlatformAuthFailed      = errors.New("integration: platform authentication failed")
	ErrPlatformRateLimited     = errors.New("integration: platform rate limited")

	// Lookup errors
	ErrOrderNotFound = errors.New("integration: order not found on platform")

	// Account errors
	ErrAccountInactive = errors.New("integration: account is not active")

	// Lead errors
	ErrLeadEmailRequired = errors.New("integration: lead email is required")
	ErrLeadEmailInvalid  = errors.New("integration: lead email is invalid")
)

// ---------------------------------------------------------------------------
// CommercePlatformCode represents the type of commerce platform
// ---------------------------------------------------------------------------

// CommercePlatformCode represents the type of commerce platform
type CommercePlatformCode string

const (
	// CommercePlatformShopify represents Shopify stores
	CommercePlatformShopify CommercePlatformCode = "shopify"
	// CommercePlatformWooCommerce represents WooCommerce stores
	CommercePlatformWooCommerce CommercePlatformCode = "woocommerce"
)

// IsValid returns true if the platform code is valid
func (c CommercePlatformCode) IsValid() bool {
	switch c {
	case CommercePlatformShopify, CommercePlatformWooCommerce:
		return true
	default:
		return false
	}
}

// String returns the string representation of CommercePlatformCode
func (c CommercePlatformCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c CommercePlatformCode) DisplayName() string {
	switch c {
	case CommercePlatformShopify:
		return "Shopify"
	case CommercePlatformWooCommerce:
		return "WooCommerce"
	default:
		return string(c)
	}
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// Product represents a product looked up on a commerce platform
type Product struct {
	// ExternalID is the product ID on the platform
	ExternalID string
	// Title is the product title
	Title string
	// Description is a short plain-text description
	Description string
	// Price is the current price
	Price decimal.Decimal
	// Currency is the ISO currency code
	Currency string
	// URL is the storefront link
	URL string
	// ImageURL is the primary product image
	ImageURL string
	// InStock indicates whether the product is purchasable
	InStock bool
}

// OrderStatus represents the state of an order on a commerce platform
type OrderStatus struct {
	// ExternalID is the order ID on the platform
	ExternalID string
	// Number is the customer-facing order number
	Number string
	// Status is the platform's fulfillment/payment status text
	Status string
	// Total is the order total
	Total decimal.Decimal
	// Currency is the ISO currency code
	Currency string
	// Tracking is the tracking number, if shipped
	Tracking string
	// PlacedAt is when the order was placed
	PlacedAt *time.Time
}

// ---------------------------------------------------------------------------
// CommercePlatform Port Interface
// ---------------------------------------------------------------------------

// CommercePlatform defines the port interface for commerce lookups.
// This interface follows the Ports & Adapters pattern - it's defined in
// the domain layer, and concrete implementations (Shopify, WooCommerce)
// are in the infrastructure layer. Lookups are read-only, the bot
// answers questions but never mutates the store.
type CommercePlatform interface {
	// Code returns the platform code this adapter handles
	Code() CommercePlatformCode

	// SearchProducts finds up to limit products matching the query
	SearchProducts(ctx context.Context, account *CommerceAccount, query string, limit int) ([]Product, error)

	// GetOrder looks up an order by customer-facing number or ID.
	// Returns ErrOrderNotFound when the platform has no such order.
	GetOrder(ctx context.Context, account *CommerceAccount, orderRef string) (*OrderStatus, error)
}

// CommercePlatformRegistry provides access to configured commerce
// platform adapters
type CommercePlatformRegistry interface {
	// GetPlatform returns the adapter for the specified code.
	// Returns ErrPlatformNotSupported for unknown codes.
	GetPlatform(code CommercePlatformCode) (CommercePlatform, error)

	// ListPlatforms returns all registered platform adapters
	ListPlatforms() []CommercePlatform
}
