package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/backend/internal/domain/integration"
)

// ShopifyDefaultAPIVersion pins the Admin REST API version
const ShopifyDefaultAPIVersion = "2024-07"

// ShopifyConfig holds configuration for the Shopify adapter
type ShopifyConfig struct {
	// APIVersion is the Admin API version segment of every request path
	APIVersion string
	// BaseURL overrides the shop-derived origin. Tests point it at a
	// local server; production leaves it empty and the adapter derives
	// https://{shop_domain}.
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// Validate normalizes the configuration, filling defaults for unset fields
func (c *ShopifyConfig) Validate() error {
	if c.APIVersion == "" {
		c.APIVersion = ShopifyDefaultAPIVersion
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return nil
}

// ShopifyAdapter implements integration.CommercePlatform for Shopify
// stores via the Admin REST API
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client

	// currencies caches the shop currency per account; Shopify products
	// do not carry one
	currencies map[uuid.UUID]string
	mu         sync.RWMutex // Protects currencies map
}

// NewShopifyAdapter creates a new Shopify adapter
func NewShopifyAdapter(config *ShopifyConfig) (*ShopifyAdapter, error) {
	if config == nil {
		config = &ShopifyConfig{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ShopifyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		currencies: make(map[uuid.UUID]string),
	}, nil
}

// Code returns the platform code this adapter handles
func (a *ShopifyAdapter) Code() integration.CommercePlatformCode {
	return integration.CommercePlatformShopify
}

// SearchProducts finds active products whose title matches the query
func (a *ShopifyAdapter) SearchProducts(ctx context.Context, account *integration.CommerceAccount, query string, limit int) ([]integration.Product, error) {
	creds, err := shopifyCredentials(account)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("title", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("status", "active")

	body, err := a.doRequest(ctx, account, creds, "/products.json?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp ShopifyProductsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: shopify products: %v", integration.ErrPlatformInvalidResponse, err)
	}

	currency := a.shopCurrency(ctx, account, creds)

	products := make([]integration.Product, 0, len(resp.Products))
	for _, p := range resp.Products {
		products = append(products, mapShopifyProduct(account, &p, currency))
	}
	return products, nil
}

// GetOrder looks an order up by its customer-facing name, falling back
// to a lookup by internal ID for bare numeric references
func (a *ShopifyAdapter) GetOrder(ctx context.Context, account *integration.CommerceAccount, orderRef string) (*integration.OrderStatus, error) {
	creds, err := shopifyCredentials(account)
	if err != nil {
		return nil, err
	}

	orderRef = strings.TrimSpace(orderRef)
	if orderRef == "" {
		return nil, fmt.Errorf("%w: empty order reference", integration.ErrOrderNotFound)
	}

	// Customers quote the order name, "#1001" by default
	name := orderRef
	if !strings.HasPrefix(name, "#") {
		name = "#" + name
	}

	params := url.Values{}
	params.Set("name", name)
	params.Set("status", "any")

	body, err := a.doRequest(ctx, account, creds, "/orders.json?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var listResp ShopifyOrdersResponse
	if err := json.Unmarshal(body, &listResp); err != nil {
		return nil, fmt.Errorf("%w: shopify orders: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if len(listResp.Orders) > 0 {
		return mapShopifyOrder(&listResp.Orders[0]), nil
	}

	// The reference may be the internal order ID, such as from a link
	if _, numErr := strconv.ParseInt(strings.TrimPrefix(orderRef, "#"), 10, 64); numErr != nil {
		return nil, fmt.Errorf("%w: %s", integration.ErrOrderNotFound, orderRef)
	}

	body, err = a.doRequest(ctx, account, creds, "/orders/"+strings.TrimPrefix(orderRef, "#")+".json")
	if err != nil {
		if errors.Is(err, errShopifyNotFound) {
			return nil, fmt.Errorf("%w: %s", integration.ErrOrderNotFound, orderRef)
		}
		return nil, err
	}

	var resp ShopifyOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Order == nil {
		return nil, fmt.Errorf("%w: shopify order", integration.ErrPlatformInvalidResponse)
	}
	return mapShopifyOrder(resp.Order), nil
}

// shopCurrency returns the store currency, cached per account. The
// currency only decorates rendered prices, so a failed shop lookup
// degrades to an empty string instead of failing the search.
func (a *ShopifyAdapter) shopCurrency(ctx context.Context, account *integration.CommerceAccount, creds *ShopifyCredentials) string {
	a.mu.RLock()
	currency, ok := a.currencies[account.ID]
	a.mu.RUnlock()
	if ok {
		return currency
	}

	body, err := a.doRequest(ctx, account, creds, "/shop.json")
	if err != nil {
		return ""
	}

	var resp ShopifyShopResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Shop.Currency == "" {
		return ""
	}

	a.mu.Lock()
	a.currencies[account.ID] = resp.Shop.Currency
	a.mu.Unlock()

	return resp.Shop.Currency
}

// errShopifyNotFound marks a 404 from the Admin API internally
var errShopifyNotFound = errors.New("shopify: resource not found")

// doRequest performs a GET against the Admin API and returns the body
func (a *ShopifyAdapter) doRequest(ctx context.Context, account *integration.CommerceAccount, creds *ShopifyCredentials, path string) ([]byte, error) {
	origin := a.config.BaseURL
	if origin == "" {
		origin = "https://" + account.ShopDomain
	}
	endpoint := origin + "/admin/api/" + a.config.APIVersion + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", integration.ErrPlatformRequestFailed, err)
	}
	req.Header.Set("X-Shopify-Access-Token", creds.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: shopify: %v", integration.ErrPlatformRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", integration.ErrPlatformRequestFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: shopify rejected the access token", integration.ErrPlatformAuthFailed)
	case resp.StatusCode == http.StatusNotFound:
		return nil, errShopifyNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: shopify", integration.ErrPlatformRateLimited)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: shopify returned HTTP %d", integration.ErrPlatformRequestFailed, resp.StatusCode)
	}

	return body, nil
}

func mapShopifyProduct(account *integration.CommerceAccount, p *ShopifyProduct, currency string) integration.Product {
	product := integration.Product{
		ExternalID:  strconv.FormatInt(p.ID, 10),
		Title:       p.Title,
		Description: htmlToText(p.BodyHTML),
		Currency:    currency,
	}

	if p.Handle != "" {
		product.URL = "https://" + account.ShopDomain + "/products/" + p.Handle
	}
	if p.Image != nil {
		product.ImageURL = p.Image.Src
	}
	for i, v := range p.Variants {
		if i == 0 {
			product.Price = parsePrice(v.Price)
		}
		if v.InventoryQuantity > 0 || v.InventoryPolicy == "continue" {
			product.InStock = true
		}
	}

	return product
}

func mapShopifyOrder(o *ShopifyOrder) *integration.OrderStatus {
	status := o.FulfillmentStatus
	if status == "" {
		status = o.FinancialStatus
	}

	order := &integration.OrderStatus{
		ExternalID: strconv.FormatInt(o.ID, 10),
		Number:     o.Name,
		Status:     strings.ReplaceAll(status, "_", " "),
		Total:      parsePrice(o.TotalPrice),
		Currency:   o.Currency,
	}

	if placedAt, err := time.Parse(time.RFC3339, o.CreatedAt); err == nil {
		order.PlacedAt = &placedAt
	}
	for _, f := range o.Fulfillments {
		if f.TrackingNumber != "" {
			order.Tracking = f.TrackingNumber
			break
		}
	}

	return order
}

func shopifyCredentials(account *integration.CommerceAccount) (*ShopifyCredentials, error) {
	var creds ShopifyCredentials
	if err := json.Unmarshal([]byte(account.Credentials), &creds); err != nil {
		return nil, fmt.Errorf("%w: shopify: parse credentials: %v", integration.ErrPlatformNotConfigured, err)
	}
	if creds.AccessToken == "" {
		return nil, fmt.Errorf("%w: shopify: credentials missing access_token", integration.ErrPlatformNotConfigured)
	}
	return &creds, nil
}

// Ensure ShopifyAdapter implements the platform port
var _ integration.CommercePlatform = (*ShopifyAdapter)(nil)
