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

// wooCommerceAPIPrefix is the REST v3 route prefix under the store origin
const wooCommerceAPIPrefix = "/wp-json/wc/v3"

// WooCommerceConfig holds configuration for the WooCommerce adapter
type WooCommerceConfig struct {
	// BaseURL overrides the shop-derived origin. Tests point it at a
	// local server; production leaves it empty and the adapter derives
	// https://{shop_domain}.
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// Validate normalizes the configuration, filling defaults for unset fields
func (c *WooCommerceConfig) Validate() error {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return nil
}

// WooCommerceAdapter implements integration.CommercePlatform for
// WooCommerce stores via the REST v3 API
type WooCommerceAdapter struct {
	config     *WooCommerceConfig
	httpClient *http.Client

	// currencies caches the store currency per account; WooCommerce
	// products do not carry one
	currencies map[uuid.UUID]string
	mu         sync.RWMutex // Protects currencies map
}

// NewWooCommerceAdapter creates a new WooCommerce adapter
func NewWooCommerceAdapter(config *WooCommerceConfig) (*WooCommerceAdapter, error) {
	if config == nil {
		config = &WooCommerceConfig{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &WooCommerceAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		currencies: make(map[uuid.UUID]string),
	}, nil
}

// Code returns the platform code this adapter handles
func (a *WooCommerceAdapter) Code() integration.CommercePlatformCode {
	return integration.CommercePlatformWooCommerce
}

// SearchProducts finds published products matching the query
func (a *WooCommerceAdapter) SearchProducts(ctx context.Context, account *integration.CommerceAccount, query string, limit int) ([]integration.Product, error) {
	creds, err := wooCommerceCredentials(account)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("search", query)
	params.Set("per_page", strconv.Itoa(limit))
	params.Set("status", "publish")

	body, err := a.doRequest(ctx, account, creds, "/products?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var wooProducts []WooCommerceProduct
	if err := json.Unmarshal(body, &wooProducts); err != nil {
		return nil, fmt.Errorf("%w: woocommerce products: %v", integration.ErrPlatformInvalidResponse, err)
	}

	currency := a.storeCurrency(ctx, account, creds)

	products := make([]integration.Product, 0, len(wooProducts))
	for _, p := range wooProducts {
		products = append(products, mapWooCommerceProduct(&p, currency))
	}
	return products, nil
}

// GetOrder looks an order up by ID. WooCommerce order numbers default
// to the ID; references that are not numeric fall back to a search.
func (a *WooCommerceAdapter) GetOrder(ctx context.Context, account *integration.CommerceAccount, orderRef string) (*integration.OrderStatus, error) {
	creds, err := wooCommerceCredentials(account)
	if err != nil {
		return nil, err
	}

	ref := strings.TrimPrefix(strings.TrimSpace(orderRef), "#")
	if ref == "" {
		return nil, fmt.Errorf("%w: empty order reference", integration.ErrOrderNotFound)
	}

	if _, numErr := strconv.ParseInt(ref, 10, 64); numErr == nil {
		body, err := a.doRequest(ctx, account, creds, "/orders/"+ref)
		if err != nil {
			if errors.Is(err, errWooCommerceNotFound) {
				return nil, fmt.Errorf("%w: %s", integration.ErrOrderNotFound, orderRef)
			}
			return nil, err
		}

		var order WooCommerceOrder
		if err := json.Unmarshal(body, &order); err != nil {
			return nil, fmt.Errorf("%w: woocommerce order: %v", integration.ErrPlatformInvalidResponse, err)
		}
		return mapWooCommerceOrder(&order), nil
	}

	// Sequential-order-number plugins detach the number from the ID
	params := url.Values{}
	params.Set("search", ref)

	body, err := a.doRequest(ctx, account, creds, "/orders?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var orders []WooCommerceOrder
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("%w: woocommerce orders: %v", integration.ErrPlatformInvalidResponse, err)
	}
	for _, order := range orders {
		if order.Number == ref {
			return mapWooCommerceOrder(&order), nil
		}
	}

	return nil, fmt.Errorf("%w: %s", integration.ErrOrderNotFound, orderRef)
}

// storeCurrency returns the store currency, cached per account. The
// currency only decorates rendered prices, so a failed settings lookup
// degrades to an empty string instead of failing the search.
func (a *WooCommerceAdapter) storeCurrency(ctx context.Context, account *integration.CommerceAccount, creds *WooCommerceCredentials) string {
	a.mu.RLock()
	currency, ok := a.currencies[account.ID]
	a.mu.RUnlock()
	if ok {
		return currency
	}

	body, err := a.doRequest(ctx, account, creds, "/settings/general")
	if err != nil {
		return ""
	}

	var settings []WooCommerceSetting
	if err := json.Unmarshal(body, &settings); err != nil {
		return ""
	}

	for _, setting := range settings {
		if setting.ID == "woocommerce_currency" && setting.Value != "" {
			a.mu.Lock()
			a.currencies[account.ID] = setting.Value
			a.mu.Unlock()
			return setting.Value
		}
	}
	return ""
}

// errWooCommerceNotFound marks a 404 from the REST API internally
var errWooCommerceNotFound = errors.New("woocommerce: resource not found")

// doRequest performs a GET against the REST API and returns the body
func (a *WooCommerceAdapter) doRequest(ctx context.Context, account *integration.CommerceAccount, creds *WooCommerceCredentials, path string) ([]byte, error) {
	origin := a.config.BaseURL
	if origin == "" {
		origin = "https://" + account.ShopDomain
	}
	endpoint := origin + wooCommerceAPIPrefix + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", integration.ErrPlatformRequestFailed, err)
	}
	req.SetBasicAuth(creds.ConsumerKey, creds.ConsumerSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: woocommerce: %v", integration.ErrPlatformRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", integration.ErrPlatformRequestFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: woocommerce rejected the consumer key", integration.ErrPlatformAuthFailed)
	case resp.StatusCode == http.StatusNotFound:
		return nil, errWooCommerceNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: woocommerce", integration.ErrPlatformRateLimited)
	case resp.StatusCode >= 400:
		var errResp WooCommerceErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
			return nil, fmt.Errorf("%w: woocommerce: %s", integration.ErrPlatformRequestFailed, errResp.Message)
		}
		return nil, fmt.Errorf("%w: woocommerce returned HTTP %d", integration.ErrPlatformRequestFailed, resp.StatusCode)
	}

	return body, nil
}

func mapWooCommerceProduct(p *WooCommerceProduct, currency string) integration.Product {
	product := integration.Product{
		ExternalID:  strconv.FormatInt(p.ID, 10),
		Title:       p.Name,
		Description: htmlToText(p.ShortDescription),
		Price:       parsePrice(p.Price),
		Currency:    currency,
		URL:         p.Permalink,
		InStock:     p.StockStatus == "instock" || p.StockStatus == "onbackorder",
	}
	if len(p.Images) > 0 {
		product.ImageURL = p.Images[0].Src
	}
	return product
}

func mapWooCommerceOrder(o *WooCommerceOrder) *integration.OrderStatus {
	order := &integration.OrderStatus{
		ExternalID: strconv.FormatInt(o.ID, 10),
		Number:     "#" + o.Number,
		Status:     strings.ReplaceAll(o.Status, "-", " "),
		Total:      parsePrice(o.Total),
		Currency:   o.Currency,
	}

	// Core WooCommerce has no tracking field; shipment plugins keep it
	// in order meta, which the adapter does not read.

	if placedAt, err := time.Parse("2006-01-02T15:04:05", o.DateCreatedGMT); err == nil {
		utc := placedAt.UTC()
		order.PlacedAt = &utc
	}

	return order
}

func wooCommerceCredentials(account *integration.CommerceAccount) (*WooCommerceCredentials, error) {
	var creds WooCommerceCredentials
	if err := json.Unmarshal([]byte(account.Credentials), &creds); err != nil {
		return nil, fmt.Errorf("%w: woocommerce: parse credentials: %v", integration.ErrPlatformNotConfigured, err)
	}
	if creds.ConsumerKey == "" || creds.ConsumerSecret == "" {
		return nil, fmt.Errorf("%w: woocommerce: credentials missing consumer key or secret", integration.ErrPlatformNotConfigured)
	}
	return &creds, nil
}

// Ensure WooCommerceAdapter implements the platform port
var _ integration.CommercePlatform = (*WooCommerceAdapter)(nil)
