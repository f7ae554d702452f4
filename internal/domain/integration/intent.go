package integration

import (
	"regexp"
	"strings"
)

// IntentType classifies what live data a user message is asking for
type IntentType string

const (
	// IntentNone means no commerce enrichment applies
	IntentNone IntentType = "none"
	// IntentOrderStatus means the user is asking about an order
	IntentOrderStatus IntentType = "order_status"
	// IntentProductSearch means the user is asking about products
	IntentProductSearch IntentType = "product_search"
)

// Intent is the result of lightweight intent detection on a user
// message. The engine uses it to decide whether to enrich the system
// context with live commerce data before calling the model.
type Intent struct {
	Type     IntentType
	OrderRef string // Set for IntentOrderStatus
	Query    string // Set for IntentProductSearch
}

var (
	orderKeywords = []string{
		"order", "track", "tracking", "shipment", "shipped",
		"delivery", "delivered", "package", "refund",
	}
	productKeywords = []string{
		"price", "cost", "how much", "in stock", "available",
		"do you have", "do you sell", "buy", "purchase",
	}

	// Matches order references like "#1001", "1001", "WC-10293"
	orderRefRegex = regexp.MustCompile(`#?\b([A-Za-z]{0,4}-?\d{3,12})\b`)
)

// DetectIntent classifies a user message. Detection is deliberately
// conservative: a missed intent just means the bot answers without live
// data, a false positive wastes a platform call.
func DetectIntent(text string) Intent {
	normalized := strings.ToLower(text)

	if containsAny(normalized, orderKeywords) {
		if m := orderRefRegex.FindStringSubmatch(text); m != nil {
			return Intent{Type: IntentOrderStatus, OrderRef: m[1]}
		}
	}

	if containsAny(normalized, productKeywords) {
		return Intent{Type: IntentProductSearch, Query: strings.TrimSpace(text)}
	}

	return Intent{Type: IntentNone}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
