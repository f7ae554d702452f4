package commerce

// ShopifyCredentials are the account secrets for the Admin API
type ShopifyCredentials struct {
	// AccessToken is the Admin API access token of the custom app
	AccessToken string `json:"access_token"`
}

// ShopifyProductsResponse is the response from GET /products.json
type ShopifyProductsResponse struct {
	Products []ShopifyProduct `json:"products"`
}

// ShopifyProduct represents a product in Shopify responses
type ShopifyProduct struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	BodyHTML string           `json:"body_html"`
	Handle   string           `json:"handle"`
	Status   string           `json:"status"`
	Variants []ShopifyVariant `json:"variants"`
	Image    *ShopifyImage    `json:"image"`
}

// ShopifyVariant represents a product variant
type ShopifyVariant struct {
	ID                int64  `json:"id"`
	Price             string `json:"price"`
	InventoryQuantity int64  `json:"inventory_quantity"`
	// InventoryPolicy is "continue" when the variant sells while out of
	// stock
	InventoryPolicy string `json:"inventory_policy"`
}

// ShopifyImage represents a product image
type ShopifyImage struct {
	Src string `json:"src"`
}

// ShopifyShopResponse is the response from GET /shop.json
type ShopifyShopResponse struct {
	Shop ShopifyShop `json:"shop"`
}

// ShopifyShop carries the store settings the adapter reads
type ShopifyShop struct {
	Currency string `json:"currency"`
}

// ShopifyOrdersResponse is the response from GET /orders.json
type ShopifyOrdersResponse struct {
	Orders []ShopifyOrder `json:"orders"`
}

// ShopifyOrderResponse is the response from GET /orders/{id}.json
type ShopifyOrderResponse struct {
	Order *ShopifyOrder `json:"order"`
}

// ShopifyOrder represents an order in Shopify responses
type ShopifyOrder struct {
	ID                int64                `json:"id"`
	Name              string               `json:"name"`
	OrderNumber       int64                `json:"order_number"`
	FinancialStatus   string               `json:"financial_status"`
	FulfillmentStatus string               `json:"fulfillment_status"`
	TotalPrice        string               `json:"total_price"`
	Currency          string               `json:"currency"`
	CreatedAt         string               `json:"created_at"`
	Fulfillments      []ShopifyFulfillment `json:"fulfillments"`
}

// ShopifyFulfillment represents a shipment of an order
type ShopifyFulfillment struct {
	TrackingNumber string `json:"tracking_number"`
}

// ShopifyErrorResponse is the error envelope of the Admin API. The
// errors field is a string or an object depending on the endpoint, so
// it stays raw.
type ShopifyErrorResponse struct {
	Errors interface{} `json:"errors"`
}
