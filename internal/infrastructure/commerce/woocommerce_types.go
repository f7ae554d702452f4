package commerce

// WooCommerceCredentials are the account secrets for the REST API
type WooCommerceCredentials struct {
	// ConsumerKey is the REST API consumer key
	ConsumerKey string `json:"consumer_key"`
	// ConsumerSecret is the REST API consumer secret
	ConsumerSecret string `json:"consumer_secret"`
}

// WooCommerceProduct represents a product in WooCommerce responses
type WooCommerceProduct struct {
	ID               int64              `json:"id"`
	Name             string             `json:"name"`
	Permalink        string             `json:"permalink"`
	ShortDescription string             `json:"short_description"`
	Price            string             `json:"price"`
	StockStatus      string             `json:"stock_status"`
	Images           []WooCommerceImage `json:"images"`
}

// WooCommerceImage represents a product image
type WooCommerceImage struct {
	Src string `json:"src"`
}

// WooCommerceOrder represents an order in WooCommerce responses
type WooCommerceOrder struct {
	ID             int64  `json:"id"`
	Number         string `json:"number"`
	Status         string `json:"status"`
	Currency       string `json:"currency"`
	Total          string `json:"total"`
	DateCreatedGMT string `json:"date_created_gmt"`
}

// WooCommerceSetting is one entry of the settings endpoints
type WooCommerceSetting struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// WooCommerceErrorResponse is the WP REST error envelope
type WooCommerceErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
