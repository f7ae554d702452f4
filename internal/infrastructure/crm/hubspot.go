package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/integration"
)

// HubSpotDefaultBaseURL is the production CRM API origin
const HubSpotDefaultBaseURL = "https://api.hubapi.com"

// hubSpotNoteToContactType is the HubSpot-defined association from a
// note to a contact
const hubSpotNoteToContactType = 202

// HubSpotConfig holds configuration for the HubSpot adapter
type HubSpotConfig struct {
	// BaseURL is the CRM API origin. Overridable for tests.
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// Validate normalizes the configuration, filling defaults for unset fields
func (c *HubSpotConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = HubSpotDefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return nil
}

// HubSpotAdapter implements integration.CRMPlatform for HubSpot via the
// CRM v3 objects API
type HubSpotAdapter struct {
	config     *HubSpotConfig
	httpClient *http.Client

	// now is stubbed in tests to pin note timestamps
	now func() time.Time
}

// NewHubSpotAdapter creates a new HubSpot adapter
func NewHubSpotAdapter(config *HubSpotConfig) (*HubSpotAdapter, error) {
	if config == nil {
		config = &HubSpotConfig{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &HubSpotAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		now: time.Now,
	}, nil
}

// Code returns the platform code this adapter handles
func (a *HubSpotAdapter) Code() integration.CRMPlatformCode {
	return integration.CRMPlatformHubSpot
}

// UpsertContact creates or updates the contact for the lead, searched
// by email. A transcript note is attached best effort; the upsert
// stands even when the note call fails.
func (a *HubSpotAdapter) UpsertContact(ctx context.Context, account *integration.CRMAccount, lead integration.Lead) error {
	if err := lead.Validate(); err != nil {
		return err
	}
	creds, err := hubSpotCredentials(account)
	if err != nil {
		return err
	}

	contactID, err := a.findContactByEmail(ctx, creds, lead.NormalizedEmail())
	if err != nil {
		return err
	}

	properties := hubSpotContactProperties(lead)
	if contactID != "" {
		if err := a.updateContact(ctx, creds, contactID, properties); err != nil {
			return err
		}
	} else {
		// Lifecycle stage only on create so an existing customer is
		// not demoted back to lead
		properties["lifecyclestage"] = "lead"
		contactID, err = a.createContact(ctx, creds, properties)
		if err != nil {
			return err
		}
	}

	if lead.ConversationURL != "" || lead.Source != "" {
		a.attachNote(ctx, creds, contactID, lead)
	}

	return nil
}

// findContactByEmail returns the contact ID, empty when no contact has
// the email
func (a *HubSpotAdapter) findContactByEmail(ctx context.Context, creds *HubSpotCredentials, email string) (string, error) {
	reqBody := HubSpotSearchRequest{
		FilterGroups: []HubSpotFilterGroup{{
			Filters: []HubSpotFilter{{
				PropertyName: "email",
				Operator:     "EQ",
				Value:        email,
			}},
		}},
		Limit: 1,
	}

	body, err := a.doRequest(ctx, creds, http.MethodPost, "/crm/v3/objects/contacts/search", reqBody)
	if err != nil {
		return "", err
	}

	var resp HubSpotSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: hubspot search: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].ID, nil
}

func (a *HubSpotAdapter) createContact(ctx context.Context, creds *HubSpotCredentials, properties map[string]string) (string, error) {
	body, err := a.doRequest(ctx, creds, http.MethodPost, "/crm/v3/objects/contacts", HubSpotContactRequest{Properties: properties})
	if err != nil {
		return "", err
	}

	var contact HubSpotContact
	if err := json.Unmarshal(body, &contact); err != nil || contact.ID == "" {
		return "", fmt.Errorf("%w: hubspot create contact", integration.ErrPlatformInvalidResponse)
	}
	return contact.ID, nil
}

func (a *HubSpotAdapter) updateContact(ctx context.Context, creds *HubSpotCredentials, contactID string, properties map[string]string) error {
	_, err := a.doRequest(ctx, creds, http.MethodPatch, "/crm/v3/objects/contacts/"+contactID, HubSpotContactRequest{Properties: properties})
	return err
}

// attachNote records where the lead came from and links the transcript.
// Errors are swallowed, the contact upsert is the operation that counts.
func (a *HubSpotAdapter) attachNote(ctx context.Context, creds *HubSpotCredentials, contactID string, lead integration.Lead) {
	var sb strings.Builder
	sb.WriteString("Lead captured during a chat")
	if lead.Source != "" {
		sb.WriteString(" via ")
		sb.WriteString(lead.Source)
	}
	sb.WriteString(".")
	if lead.ConversationURL != "" {
		sb.WriteString(" Transcript: ")
		sb.WriteString(lead.ConversationURL)
	}

	reqBody := HubSpotNoteRequest{
		Properties: HubSpotNoteProperties{
			Timestamp: a.now().UTC().Format(time.RFC3339),
			Body:      sb.String(),
		},
		Associations: []HubSpotAssociation{{
			To: HubSpotAssociationTarget{ID: contactID},
			Types: []HubSpotAssociationType{{
				AssociationCategory: "HUBSPOT_DEFINED",
				AssociationTypeID:   hubSpotNoteToContactType,
			}},
		}},
	}

	_, _ = a.doRequest(ctx, creds, http.MethodPost, "/crm/v3/objects/notes", reqBody)
}

// doRequest performs a JSON request against the CRM API and returns the
// body
func (a *HubSpotAdapter) doRequest(ctx context.Context, creds *HubSpotCredentials, method, path string, payload interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", integration.ErrPlatformRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", integration.ErrPlatformRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: hubspot: %v", integration.ErrPlatformRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", integration.ErrPlatformRequestFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: hubspot rejected the access token", integration.ErrPlatformAuthFailed)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: hubspot", integration.ErrPlatformRateLimited)
	case resp.StatusCode >= 400:
		var errResp HubSpotErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
			return nil, fmt.Errorf("%w: hubspot: %s", integration.ErrPlatformRequestFailed, errResp.Message)
		}
		return nil, fmt.Errorf("%w: hubspot returned HTTP %d", integration.ErrPlatformRequestFailed, resp.StatusCode)
	}

	return body, nil
}

// hubSpotContactProperties maps the lead onto HubSpot's default contact
// properties
func hubSpotContactProperties(lead integration.Lead) map[string]string {
	properties := map[string]string{
		"email": lead.NormalizedEmail(),
	}

	if first, last := splitLeadName(lead.Name); first != "" {
		properties["firstname"] = first
		if last != "" {
			properties["lastname"] = last
		}
	}
	if phone := strings.TrimSpace(lead.Phone); phone != "" {
		properties["phone"] = phone
	}

	return properties
}

// splitLeadName splits a free-form name into first and last name
func splitLeadName(name string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

func hubSpotCredentials(account *integration.CRMAccount) (*HubSpotCredentials, error) {
	var creds HubSpotCredentials
	if err := json.Unmarshal([]byte(account.Credentials), &creds); err != nil {
		return nil, fmt.Errorf("%w: hubspot: parse credentials: %v", integration.ErrPlatformNotConfigured, err)
	}
	if creds.AccessToken == "" {
		return nil, fmt.Errorf("%w: hubspot: credentials missing access_token", integration.ErrPlatformNotConfigured)
	}
	return &creds, nil
}

// Ensure HubSpotAdapter implements the platform port
var _ integration.CRMPlatform = (*HubSpotAdapter)(nil)
