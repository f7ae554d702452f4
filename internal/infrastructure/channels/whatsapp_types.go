package channels

import "encoding/json"

// WhatsAppCredentials are the account credentials for a WhatsApp Business
// number on the Meta Cloud API
type WhatsAppCredentials struct {
	AccessToken   string `json:"access_token"`
	PhoneNumberID string `json:"phone_number_id"`
}

// WhatsAppWebhookPayload is the Cloud API webhook envelope
type WhatsAppWebhookPayload struct {
	Object string          `json:"object"`
	Entry  []WhatsAppEntry `json:"entry"`
}

// WhatsAppEntry is one account-level entry in a webhook payload
type WhatsAppEntry struct {
	ID      string           `json:"id"`
	Changes []WhatsAppChange `json:"changes"`
}

// WhatsAppChange is one field change inside an entry
type WhatsAppChange struct {
	Field string              `json:"field"`
	Value WhatsAppChangeValue `json:"value"`
}

// WhatsAppChangeValue carries messages or delivery statuses
type WhatsAppChangeValue struct {
	MessagingProduct string                   `json:"messaging_product"`
	Metadata         WhatsAppMetadata         `json:"metadata"`
	Messages         []WhatsAppInboundMessage `json:"messages"`
	Statuses         []json.RawMessage        `json:"statuses"`
}

// WhatsAppMetadata identifies the receiving business number
type WhatsAppMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// WhatsAppInboundMessage is one user message
type WhatsAppInboundMessage struct {
	From      string            `json:"from"`
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Type      string            `json:"type"`
	Text      *WhatsAppTextBody `json:"text"`
}

// WhatsAppTextBody is the text payload of a message
type WhatsAppTextBody struct {
	Body string `json:"body"`
}

// WhatsAppSendRequest is the request body for /{phone_number_id}/messages
type WhatsAppSendRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	RecipientType    string           `json:"recipient_type"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             WhatsAppTextBody `json:"text"`
}

// WhatsAppAPIError is the error detail inside a non-2xx Graph response
type WhatsAppAPIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// WhatsAppErrorResponse is the Graph API error envelope
type WhatsAppErrorResponse struct {
	Error WhatsAppAPIError `json:"error"`
}
