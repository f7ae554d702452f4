package integration

import (
	"context"
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// CRMPlatformCode represents the type of CRM platform
// ---------------------------------------------------------------------------

// CRMPlatformCode represents the type of CRM platform
type CRMPlatformCode string

const (
	// CRMPlatformHubSpot represents HubSpot CRM
	CRMPlatformHubSpot CRMPlatformCode = "hubspot"
)

// IsValid returns true if the platform code is valid
func (c CRMPlatformCode) IsValid() bool {
	return c == CRMPlatformHubSpot
}

// String returns the string representation of CRMPlatformCode
func (c CRMPlatformCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c CRMPlatformCode) DisplayName() string {
	switch c {
	case CRMPlatformHubSpot:
		return "HubSpot"
	default:
		return string(c)
	}
}

// ---------------------------------------------------------------------------
// Lead Value Object
// ---------------------------------------------------------------------------

var leadEmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Lead represents a visitor who left contact details during a chat
type Lead struct {
	// Email is the visitor's email address (required)
	Email string
	// Name is the visitor's name, if given
	Name string
	// Phone is the visitor's phone number, if given
	Phone string
	// ConversationURL links back to the dashboard transcript
	ConversationURL string
	// Source identifies where the lead came from, e.g. "chatforge-widget"
	Source string
}

// Validate checks the lead before it is sent to a CRM
func (l *Lead) Validate() error {
	email := strings.TrimSpace(l.Email)
	if email == "" {
		return ErrLeadEmailRequired
	}
	if !leadEmailRegex.MatchString(email) {
		return ErrLeadEmailInvalid
	}
	return nil
}

// NormalizedEmail returns the lead's email lowercased and trimmed,
// the form CRMs are queried with
func (l *Lead) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(l.Email))
}

// ---------------------------------------------------------------------------
// CRMPlatform Port Interface
// ---------------------------------------------------------------------------

// CRMPlatform defines the port interface for CRM lead capture.
// This interface follows the Ports & Adapters pattern - it's defined in
// the domain layer, and concrete implementations (HubSpot) are in the
// infrastructure layer.
type CRMPlatform interface {
	// Code returns the platform code this adapter handles
	Code() CRMPlatformCode

	// UpsertContact creates or updates a CRM contact for the lead.
	// Implementations search by email first and patch the existing
	// contact when one is found.
	UpsertContact(ctx context.Context, account *CRMAccount, lead Lead) error
}

// CRMPlatformRegistry provides access to configured CRM platform
// adapters
type CRMPlatformRegistry interface {
	// GetPlatform returns the adapter for the specified code.
	// Returns ErrPlatformNotSupported for unknown codes.
	GetPlatform(code CRMPlatformCode) (CRMPlatform, error)

	// ListPlatforms returns all registered platform adapters
	ListPlatforms() []CRMPlatform
}
