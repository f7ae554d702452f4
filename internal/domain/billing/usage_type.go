package billing

import "fmt"

// UsageType represents the type of resource being metered
type UsageType string

const (
	// UsageTypeMessages tracks assistant replies generated in a billing period
	UsageTypeMessages UsageType = "MESSAGES"

	// UsageTypeAITokens tracks prompt + completion tokens consumed across providers
	UsageTypeAITokens UsageType = "AI_TOKENS"

	// UsageTypeDocuments tracks the number of knowledge documents stored
	UsageTypeDocuments UsageType = "DOCUMENTS"

	// UsageTypeStorageBytes tracks document storage consumption in bytes
	UsageTypeStorageBytes UsageType = "STORAGE_BYTES"

	// UsageTypeBots tracks the number of bots in a workspace
	UsageTypeBots UsageType = "BOTS"

	// UsageTypeChannels tracks the number of connected channel accounts
	UsageTypeChannels UsageType = "CHANNELS"

	// UsageTypeCrawlPages tracks web pages fetched by the ingestion crawler
	UsageTypeCrawlPages UsageType = "CRAWL_PAGES"

	// UsageTypeIntegrationCalls tracks commerce/CRM integration API calls
	UsageTypeIntegrationCalls UsageType = "INTEGRATION_CALLS"

	// UsageTypeAPICalls tracks authenticated requests against the public API
	UsageTypeAPICalls UsageType = "API_CALLS"
)

// String returns the string representation of UsageType
func (u UsageType) String() string {
	return string(u)
}

// IsValid returns true if the usage type is valid
func (u UsageType) IsValid() bool {
	switch u {
	case UsageTypeMessages,
		UsageTypeAITokens,
		UsageTypeDocuments,
		UsageTypeStorageBytes,
		UsageTypeBots,
		UsageTypeChannels,
		UsageTypeCrawlPages,
		UsageTypeIntegrationCalls,
		UsageTypeAPICalls:
		return true
	}
	return false
}

// Unit returns the measurement unit for this usage type
func (u UsageType) Unit() UsageUnit {
	switch u {
	case UsageTypeStorageBytes:
		return UsageUnitBytes
	case UsageTypeAITokens:
		return UsageUnitTokens
	case UsageTypeMessages:
		return UsageUnitMessages
	case UsageTypeDocuments, UsageTypeBots, UsageTypeChannels:
		return UsageUnitCount
	default:
		return UsageUnitRequests
	}
}

// IsCountable returns true if this usage type represents a countable resource
// (e.g., bots, documents) rather than an event-based metric (e.g., messages)
func (u UsageType) IsCountable() bool {
	switch u {
	case UsageTypeDocuments, UsageTypeBots, UsageTypeChannels:
		return true
	}
	return false
}

// IsAccumulative returns true if this usage type accumulates over time
// (e.g., messages, tokens) rather than being a point-in-time snapshot
func (u UsageType) IsAccumulative() bool {
	switch u {
	case UsageTypeMessages, UsageTypeAITokens, UsageTypeCrawlPages,
		UsageTypeIntegrationCalls, UsageTypeAPICalls:
		return true
	}
	return false
}

// IsStorage returns true if this usage type represents storage consumption
func (u UsageType) IsStorage() bool {
	return u == UsageTypeStorageBytes
}

// DisplayName returns a human-readable name for the usage type
func (u UsageType) DisplayName() string {
	switch u {
	case UsageTypeMessages:
		return "Messages"
	case UsageTypeAITokens:
		return "AI Tokens"
	case UsageTypeDocuments:
		return "Documents"
	case UsageTypeStorageBytes:
		return "Storage"
	case UsageTypeBots:
		return "Bots"
	case UsageTypeChannels:
		return "Channels"
	case UsageTypeCrawlPages:
		return "Crawled Pages"
	case UsageTypeIntegrationCalls:
		return "Integration Calls"
	case UsageTypeAPICalls:
		return "API Calls"
	default:
		return string(u)
	}
}

// AllUsageTypes returns all valid usage types
func AllUsageTypes() []UsageType {
	return []UsageType{
		UsageTypeMessages,
		UsageTypeAITokens,
		UsageTypeDocuments,
		UsageTypeStorageBytes,
		UsageTypeBots,
		UsageTypeChannels,
		UsageTypeCrawlPages,
		UsageTypeIntegrationCalls,
		UsageTypeAPICalls,
	}
}

// ParseUsageType parses a string into a UsageType
func ParseUsageType(s string) (UsageType, error) {
	u := UsageType(s)
	if !u.IsValid() {
		return "", fmt.Errorf("invalid usage type: %s", s)
	}
	return u, nil
}

// UsageUnit represents the unit of measurement for usage
type UsageUnit string

const (
	// UsageUnitRequests represents request/call count
	UsageUnitRequests UsageUnit = "requests"

	// UsageUnitBytes represents storage in bytes
	UsageUnitBytes UsageUnit = "bytes"

	// UsageUnitCount represents a simple count
	UsageUnitCount UsageUnit = "count"

	// UsageUnitTokens represents AI model tokens
	UsageUnitTokens UsageUnit = "tokens"

	// UsageUnitMessages represents chat messages
	UsageUnitMessages UsageUnit = "messages"
)

// String returns the string representation of UsageUnit
func (u UsageUnit) String() string {
	return string(u)
}

// IsValid returns true if the usage unit is valid
func (u UsageUnit) IsValid() bool {
	switch u {
	case UsageUnitRequests, UsageUnitBytes, UsageUnitCount,
		UsageUnitTokens, UsageUnitMessages:
		return true
	}
	return false
}

// FormatValue formats a value with the appropriate unit suffix
func (u UsageUnit) FormatValue(value int64) string {
	switch u {
	case UsageUnitBytes:
		return formatBytes(value)
	case UsageUnitRequests:
		return fmt.Sprintf("%d requests", value)
	case UsageUnitTokens:
		return fmt.Sprintf("%d tokens", value)
	case UsageUnitMessages:
		return fmt.Sprintf("%d messages", value)
	case UsageUnitCount:
		return fmt.Sprintf("%d", value)
	default:
		return fmt.Sprintf("%d", value)
	}
}

// formatBytes formats bytes into human-readable format
func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.2f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// ResetPeriod represents when usage counters reset
type ResetPeriod string

const (
	// ResetPeriodDaily resets usage daily
	ResetPeriodDaily ResetPeriod = "DAILY"

	// ResetPeriodWeekly resets usage weekly
	ResetPeriodWeekly ResetPeriod = "WEEKLY"

	// ResetPeriodMonthly resets usage monthly (most common for billing)
	ResetPeriodMonthly ResetPeriod = "MONTHLY"

	// ResetPeriodYearly resets usage yearly
	ResetPeriodYearly ResetPeriod = "YEARLY"

	// ResetPeriodNever never resets (for lifetime limits)
	ResetPeriodNever ResetPeriod = "NEVER"
)

// String returns the string representation of ResetPeriod
func (r ResetPeriod) String() string {
	return string(r)
}

// IsValid returns true if the reset period is valid
func (r ResetPeriod) IsValid() bool {
	switch r {
	case ResetPeriodDaily, ResetPeriodWeekly, ResetPeriodMonthly,
		ResetPeriodYearly, ResetPeriodNever:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the reset period
func (r ResetPeriod) DisplayName() string {
	switch r {
	case ResetPeriodDaily:
		return "Daily"
	case ResetPeriodWeekly:
		return "Weekly"
	case ResetPeriodMonthly:
		return "Monthly"
	case ResetPeriodYearly:
		return "Yearly"
	case ResetPeriodNever:
		return "Never"
	default:
		return string(r)
	}
}
