package crm

// HubSpotCredentials are the account secrets for the CRM API
type HubSpotCredentials struct {
	// AccessToken is a private app access token
	AccessToken string `json:"access_token"`
}

// HubSpotSearchRequest is the body of POST /crm/v3/objects/contacts/search
type HubSpotSearchRequest struct {
	FilterGroups []HubSpotFilterGroup `json:"filterGroups"`
	Limit        int                  `json:"limit"`
}

// HubSpotFilterGroup groups filters combined with AND
type HubSpotFilterGroup struct {
	Filters []HubSpotFilter `json:"filters"`
}

// HubSpotFilter is one property condition of a search
type HubSpotFilter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

// HubSpotSearchResponse is the response of a contact search
type HubSpotSearchResponse struct {
	Total   int              `json:"total"`
	Results []HubSpotContact `json:"results"`
}

// HubSpotContact represents a contact object
type HubSpotContact struct {
	ID string `json:"id"`
}

// HubSpotContactRequest is the body of contact create and update calls
type HubSpotContactRequest struct {
	Properties map[string]string `json:"properties"`
}

// HubSpotNoteRequest is the body of POST /crm/v3/objects/notes
type HubSpotNoteRequest struct {
	Properties   HubSpotNoteProperties `json:"properties"`
	Associations []HubSpotAssociation  `json:"associations"`
}

// HubSpotNoteProperties carries the note content
type HubSpotNoteProperties struct {
	// Timestamp is required by HubSpot, milliseconds or ISO 8601
	Timestamp string `json:"hs_timestamp"`
	Body      string `json:"hs_note_body"`
}

// HubSpotAssociation links a created object to an existing one
type HubSpotAssociation struct {
	To    HubSpotAssociationTarget `json:"to"`
	Types []HubSpotAssociationType `json:"types"`
}

// HubSpotAssociationTarget is the object an association points at
type HubSpotAssociationTarget struct {
	ID string `json:"id"`
}

// HubSpotAssociationType identifies the association definition
type HubSpotAssociationType struct {
	AssociationCategory string `json:"associationCategory"`
	AssociationTypeID   int    `json:"associationTypeId"`
}

// HubSpotErrorResponse is the CRM API error envelope
type HubSpotErrorResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Category string `json:"category"`
}
