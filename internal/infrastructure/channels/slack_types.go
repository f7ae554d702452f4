package channels

// SlackCredentials are the account credentials for a Slack bot
type SlackCredentials struct {
	BotToken string `json:"bot_token"`
}

// SlackEventEnvelope is the Events API outer payload
type SlackEventEnvelope struct {
	Type      string     `json:"type"`
	Token     string     `json:"token"`
	Challenge string     `json:"challenge"`
	TeamID    string     `json:"team_id"`
	Event     SlackEvent `json:"event"`
}

// SlackEvent is the inner event of an event_callback envelope
type SlackEvent struct {
	Type        string `json:"type"`
	Subtype     string `json:"subtype"`
	User        string `json:"user"`
	BotID       string `json:"bot_id"`
	Text        string `json:"text"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	TS          string `json:"ts"`
}

// SlackPostMessageRequest is the request body for chat.postMessage
type SlackPostMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// SlackAPIResponse is the Web API response envelope
type SlackAPIResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
