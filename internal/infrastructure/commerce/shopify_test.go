package commerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/backend/internal/domain/integration"
)

func newShopifyAccount(t *testing.T) *integration.CommerceAccount {
	t.Helper()
	account, err := integration.NewCommerceAccount(
		uuid.New(), integration.CommercePlatformShopify,
		"demo-store.myshopify.com", `{"access_token":"shpat_abc123"}`,
	)
	require.NoError(t, err)
	return account
}

func newShopifyAdapter(t *testing.T, baseURL string) *ShopifyAdapter {
	t.Helper()
	adapter, err := NewShopifyAdapter(&ShopifyConfig{BaseURL: baseURL})
	require.NoError(t, err)
	return adapter
}

func TestShopifyAdapter_Code(t *testing.T) {
	adapter := newShopifyAdapter(t, "")
	assert.Equal(t, integration.CommercePlatformShopify, adapter.Code())
}

func TestShopifyAdapter_SearchProducts(t *testing.T) {
	t.Run("maps products and shop currency", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "shpat_abc123", r.Header.Get("X-Shopify-Access-Token"))

			switch r.URL.Path {
			case "/admin/api/2024-07/products.json":
				assert.Equal(t, "hoodie", r.URL.Query().Get("title"))
				assert.Equal(t, "3", r.URL.Query().Get("limit"))
				assert.Equal(t, "active", r.URL.Query().Get("status"))
				w.Write([]byte(`{"products":[
					{
						"id": 632910392,
						"title": "Zip Hoodie",
						"body_html": "<p>Soft <b>fleece</b> hoodie.</p>",
						"handle": "zip-hoodie",
						"status": "active",
						"variants": [{"id": 1, "price": "49.00", "inventory_quantity": 12, "inventory_policy": "deny"}],
						"image": {"src": "https://cdn.example.com/hoodie.png"}
					},
					{
						"id": 632910393,
						"title": "Sold Out Tee",
						"body_html": "",
						"handle": "sold-out-tee",
						"status": "active",
						"variants": [{"id": 2, "price": "19.00", "inventory_quantity": 0, "inventory_policy": "deny"}]
					}
				]}`))
			case "/admin/api/2024-07/shop.json":
				w.Write([]byte(`{"shop":{"currency":"USD"}}`))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		adapter := newShopifyAdapter(t, server.URL)
		products, err := adapter.SearchProducts(context.Background(), newShopifyAccount(t), "hoodie", 3)
		require.NoError(t, err)
		require.Len(t, products, 2)

		assert.Equal(t, "632910392", products[0].ExternalID)
		assert.Equal(t, "Zip Hoodie", products[0].Title)
		assert.Equal(t, "Soft fleece hoodie.", products[0].Description)
		assert.Equal(t, "49.00", products[0].Price.StringFixed(2))
		assert.Equal(t, "USD", products[0].Currency)
		assert.Equal(t, "https://demo-store.myshopify.com/products/zip-hoodie", products[0].URL)
		assert.Equal(t, "https://cdn.example.com/hoodie.png", products[0].ImageURL)
		assert.True(t, products[0].InStock)

		assert.False(t, products[1].InStock)
	})

	t.Run("caches shop currency per account", func(t *testing.T) {
		var shopCalls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/admin/api/2024-07/shop.json":
				shopCalls.Add(1)
				w.Write([]byte(`{"shop":{"currency":"EUR"}}`))
			default:
				w.Write([]byte(`{"products":[]}`))
			}
		}))
		defer server.Close()

		adapter := newShopifyAdapter(t, server.URL)
		account := newShopifyAccount(t)

		_, err := adapter.SearchProducts(context.Background(), account, "a", 1)
		require.NoError(t, err)
		_, err = adapter.SearchProducts(context.Background(), account, "b", 1)
		require.NoError(t, err)

		assert.Equal(t, int32(1), shopCalls.Load())
	})

	t.Run("maps auth failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errors":"[API] Invalid API key or access token"}`))
		}))
		defer server.Close()

		adapter := newShopifyAdapter(t, server.URL)
		_, err := adapter.SearchProducts(context.Background(), newShopifyAccount(t), "hoodie", 3)
		assert.ErrorIs(t, err, integration.ErrPlatformAuthFailed)
	})

	t.Run("maps rate limiting", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		adapter := newShopifyAdapter(t, server.URL)
		_, err := adapter.SearchProducts(context.Background(), newShopifyAccount(t), "hoodie", 3)
		assert.ErrorIs(t, err, integration.ErrPlatformRateLimited)
	})

	t.Run("rejects credentials without token", func(t *testing.T) {
		account, err := integration.NewCommerceAccount(
			uuid.New(), integration.CommercePlatformShopify,
			"demo-store.myshopify.com", `{"api_key":"nope"}`,
		)
		require.NoError(t, err)

		adapter := newShopifyAdapter(t, "http://localhost")
		_, err = adapter.SearchProducts(context.Background(), account, "hoodie", 3)
		assert.ErrorIs(t, err, integration.ErrPlatformNotConfigured)
	})
}

func TestShopifyAdapter_GetOrder(t *testing.T) {
	orderJSON := `{
		"id": 450789469,
		"name": "#1001",
		"order_number": 1001,
		"financial_status": "paid",
		"fulfillment_status": "partially_fulfilled",
		"total_price": "409.94",
		"currency": "USD",
		"created_at": "2025-05-10T11:00:00-05:00",
		"fulfillments": [{"tracking_number": "1Z999AA10123456784"}]
	}`

	t.Run("finds order by name", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/admin/api/2024-07/orders.json", r.URL.Path)
			assert.Equal(t, "#1001", r.URL.Query().Get("name"))
			assert.Equal(t, "any", r.URL.Query().Get("status"))
			w.Write([]byte(`{"orders":[` + orderJSON + `]}`))
		}))
		defer server.Close()

		adapter := newShopifyAdapter(t, server.URL)
		order, err := adapter.GetOrder(context.Background(), newShopifyAccount(t), "1001")
		require.NoError(t, err)

		assert.Equal(t, "450789469", order.ExternalID)
		assert.Equal(t, "#1001", order.Number)
		assert.Equal(t, "partially fulfilled", order.Status)
		assert.Equal(t, "409.94", order.Total.StringFixed(2))
		assert.Equal(t, "USD", order.Currency)
		assert.Equal(t, "1Z999AA10123456784", order.Tracking)
		require.NotNil(t, order.PlacedAt)
		assert.Equal(t, 2025, order.PlacedAt.Year())
	})

	t.Run("falls back to lookup by ID", func(t *testing.T) {
		var paths []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			switch r.URL.Path {
			case "/admin/api/2024-07/orders.json":
				w.Write([]byte(`{"orders":[]}`))
			case "/admin/api/2024-07/orders/450789469.json":
				w.Write([]byte(`{"order":` + orderJSON + `}`))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		adapter := newShopifyAdapter(t, server.URL)
		order, err := adapter.GetOrder(context.Background(), newShopifyAccount(t), "450789469")
		require.NoError(t, err)
		assert.Equal(t, "#1001", order.Number)
		assert.Len(t, paths, 2)
	})

	t.Run("maps unknown order to not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/admin/api/2024-07/orders.json" {
				w.Write([]byte(`{"orders":[]}`))
				return
			}
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"errors":"Not Found"}`))
		}))
		defer server.Close()

		adapter := newShopifyAdapter(t, server.URL)
		_, err := adapter.GetOrder(context.Background(), newShopifyAccount(t), "9999")
		assert.ErrorIs(t, err, integration.ErrOrderNotFound)
	})

	t.Run("skips ID lookup for non-numeric references", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			w.Write([]byte(`{"orders":[]}`))
		}))
		defer server.Close()

		adapter := newShopifyAdapter(t, server.URL)
		_, err := adapter.GetOrder(context.Background(), newShopifyAccount(t), "ORDER-ABC")
		assert.ErrorIs(t, err, integration.ErrOrderNotFound)
		assert.Equal(t, int32(1), requests.Load())
	})
}
