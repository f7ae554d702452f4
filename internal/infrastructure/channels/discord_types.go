package channels

import "encoding/json"

// DiscordCredentials are the account credentials for a Discord bot
type DiscordCredentials struct {
	BotToken string `json:"bot_token"`
}

// Discord interaction types, as delivered to the interactions endpoint
const (
	DiscordInteractionPing               = 1
	DiscordInteractionApplicationCommand = 2
)

// DiscordInteractionResponsePong answers PING handshakes
const DiscordInteractionResponsePong = 1

// DiscordInteraction is an inbound interactions webhook payload
type DiscordInteraction struct {
	ID        string                  `json:"id"`
	Type      int                     `json:"type"`
	ChannelID string                  `json:"channel_id"`
	Member    *DiscordMember          `json:"member"`
	User      *DiscordUser            `json:"user"`
	Data      *DiscordInteractionData `json:"data"`
}

// DiscordMember wraps the invoking user in guild interactions
type DiscordMember struct {
	User *DiscordUser `json:"user"`
}

// DiscordUser identifies a Discord user
type DiscordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// DiscordInteractionData is the invoked command with its options
type DiscordInteractionData struct {
	Name    string                 `json:"name"`
	Options []DiscordCommandOption `json:"options"`
}

// DiscordCommandOption is one option of a slash command. Value is raw
// because option types mix strings and numbers.
type DiscordCommandOption struct {
	Name  string          `json:"name"`
	Type  int             `json:"type"`
	Value json.RawMessage `json:"value"`
}

// DiscordSendRequest is the request body for channel message creation
type DiscordSendRequest struct {
	Content string `json:"content"`
}

// DiscordAPIError is the REST API error body
type DiscordAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
