package aiprovider

// AnthropicMessage is one turn in a messages request. The API accepts
// only user and assistant roles here; the system prompt travels in the
// top-level system field.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicMessageRequest is the request body for /v1/messages
type AnthropicMessageRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []AnthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

// AnthropicContentBlock is one block of response content
type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// AnthropicUsage reports token consumption of one API call
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AnthropicMessageResponse is the response body for /v1/messages
type AnthropicMessageResponse struct {
	ID         string                  `json:"id"`
	Model      string                  `json:"model"`
	Content    []AnthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      AnthropicUsage          `json:"usage"`
}

// AnthropicAPIError is the error detail inside a non-2xx response
type AnthropicAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicErrorResponse is the error envelope returned on non-2xx statuses
type AnthropicErrorResponse struct {
	Type  string            `json:"type"`
	Error AnthropicAPIError `json:"error"`
}
