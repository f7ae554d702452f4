package channels

// TelegramCredentials are the account credentials for a Telegram bot
type TelegramCredentials struct {
	BotToken string `json:"bot_token"`
}

// TelegramUpdate is an inbound Bot API update
type TelegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *TelegramMessage `json:"message"`
}

// TelegramMessage is one message inside an update
type TelegramMessage struct {
	MessageID int64         `json:"message_id"`
	From      *TelegramUser `json:"from"`
	Chat      *TelegramChat `json:"chat"`
	Date      int64         `json:"date"`
	Text      string        `json:"text"`
}

// TelegramUser is the author of a message
type TelegramUser struct {
	ID    int64  `json:"id"`
	IsBot bool   `json:"is_bot"`
	Name  string `json:"first_name"`
}

// TelegramChat is the conversation a message belongs to
type TelegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// TelegramSendRequest is the request body for sendMessage
type TelegramSendRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// TelegramAPIResponse is the Bot API response envelope
type TelegramAPIResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}
