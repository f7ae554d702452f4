package bot

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BotStatus represents the lifecycle status of a bot
type BotStatus string

const (
	BotStatusDraft     BotStatus = "draft"     // Being configured, not serving traffic
	BotStatusPublished BotStatus = "published" // Live on widget and channels
	BotStatusArchived  BotStatus = "archived"  // Retired, kept for history
)

// IsValid returns true if the status is known
func (s BotStatus) IsValid() bool {
	switch s {
	case BotStatusDraft, BotStatusPublished, BotStatusArchived:
		return true
	default:
		return false
	}
}

// ModelProvider identifies the AI provider backing a bot
type ModelProvider string

const (
	ModelProviderOpenAI    ModelProvider = "openai"
	ModelProviderAnthropic ModelProvider = "anthropic"
	ModelProviderGemini    ModelProvider = "gemini"
)

// WidgetPosition is the corner the chat widget anchors to
type WidgetPosition string

const (
	WidgetPositionLeft  WidgetPosition = "left"
	WidgetPositionRight WidgetPosition = "right"
)

const (
	maxSystemPromptLength = 8000
	maxTemperature        = 2.0
	maxRetrievalTopK      = 20
	widgetKeyBytes        = 16 // hex-encoded to 32 chars
)

// ModelSettings holds the AI generation parameters of a bot
type ModelSettings struct {
	Provider     ModelProvider `json:"provider"`
	Model        string        `json:"model"`
	Temperature  float64       `json:"temperature"`
	MaxTokens    int           `json:"max_tokens"`
	SystemPrompt string        `json:"system_prompt"`
}

// DefaultModelSettings returns the model settings applied to new bots
func DefaultModelSettings() ModelSettings {
	return ModelSettings{
		Provider:    ModelProviderOpenAI,
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   1024,
	}
}

// WidgetSettings holds the appearance and behavior of the embeddable widget
type WidgetSettings struct {
	WelcomeMessage string         `json:"welcome_message"`
	Placeholder    string         `json:"placeholder"`
	AccentColor    string         `json:"accent_color"` // #rrggbb
	Position       WidgetPosition `json:"position"`
	CollectEmail   bool           `json:"collect_email"`
	ShowSources    bool           `json:"show_sources"`
}

// DefaultWidgetSettings returns the widget settings applied to new bots
func DefaultWidgetSettings() WidgetSettings {
	return WidgetSettings{
		WelcomeMessage: "Hi! How can I help you today?",
		Placeholder:    "Type a message...",
		AccentColor:    "#4F46E5",
		Position:       WidgetPositionRight,
		CollectEmail:   false,
		ShowSources:    true,
	}
}

// Bot represents a configured chatbot
// It is the aggregate root for bot-related operations
type Bot struct {
	shared.TenantAggregateRoot
	Name              string         `gorm:"type:varchar(200);not null"`
	Slug              string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_bot_tenant_slug,priority:2"`
	Description       string         `gorm:"type:text"`
	Status            BotStatus      `gorm:"type:varchar(20);not null;default:'draft'"`
	ModelSettings     ModelSettings  `gorm:"embedded;embeddedPrefix:model_"`
	WidgetSettings    WidgetSettings `gorm:"embedded;embeddedPrefix:widget_"`
	WidgetKey         string         `gorm:"type:varchar(32);not null;uniqueIndex"`
	RetrievalTopK     int            `gorm:"not null;default:4"`
	RetrievalMinScore float64        `gorm:"not null;default:0.35"`
	PublishedAt       *time.Time
}

// TableName returns the table name for GORM
func (Bot) TableName() string {
	return "bots"
}

// NewBot creates a new bot in draft status with default settings
func NewBot(tenantID uuid.UUID, name, slug string) (*Bot, error) {
	if err := validateBotName(name); err != nil {
		return nil, err
	}
	if err := validateBotSlug(slug); err != nil {
		return nil, err
	}

	key, err := generateWidgetKey()
	if err != nil {
		return nil, shared.NewDomainError("WIDGET_KEY_ERROR", "Failed to generate widget key")
	}

	b := &Bot{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Slug:                strings.ToLower(slug),
		Status:              BotStatusDraft,
		ModelSettings:       DefaultModelSettings(),
		WidgetSettings:      DefaultWidgetSettings(),
		WidgetKey:           key,
		RetrievalTopK:       4,
		RetrievalMinScore:   0.35,
	}

	b.AddDomainEvent(NewBotCreatedEvent(b))

	return b, nil
}

// Update updates the bot's basic information
func (b *Bot) Update(name, description string) error {
	if err := validateBotName(name); err != nil {
		return err
	}
	if len(description) > 2000 {
		return shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 2000 characters")
	}

	b.Name = name
	b.Description = description
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBotUpdatedEvent(b))

	return nil
}

// UpdateModelSettings replaces the bot's model settings
func (b *Bot) UpdateModelSettings(settings ModelSettings) error {
	if err := validateModelSettings(settings); err != nil {
		return err
	}

	b.ModelSettings = settings
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBotModelSettingsChangedEvent(b))

	return nil
}

// UpdateWidgetSettings replaces the bot's widget settings
func (b *Bot) UpdateWidgetSettings(settings WidgetSettings) error {
	if err := validateWidgetSettings(settings); err != nil {
		return err
	}

	b.WidgetSettings = settings
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBotUpdatedEvent(b))

	return nil
}

// SetRetrieval sets the knowledge retrieval parameters
func (b *Bot) SetRetrieval(topK int, minScore float64) error {
	if topK < 1 || topK > maxRetrievalTopK {
		return shared.NewDomainError("INVALID_TOP_K", "Retrieval top-K must be between 1 and 20")
	}
	if minScore < 0 || minScore > 1 {
		return shared.NewDomainError("INVALID_MIN_SCORE", "Retrieval min score must be between 0 and 1")
	}

	b.RetrievalTopK = topK
	b.RetrievalMinScore = minScore
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	return nil
}

// Publish makes the bot live. A bot cannot be published without a
// system prompt, since it would answer with no persona or guardrails.
func (b *Bot) Publish() error {
	if b.Status == BotStatusPublished {
		return shared.NewDomainError("ALREADY_PUBLISHED", "Bot is already published")
	}
	if b.Status == BotStatusArchived {
		return shared.NewDomainError("BOT_ARCHIVED", "Cannot publish an archived bot")
	}
	if strings.TrimSpace(b.ModelSettings.SystemPrompt) == "" {
		return shared.NewDomainError("MISSING_SYSTEM_PROMPT", "Bot needs a system prompt before publishing")
	}

	now := time.Now()
	b.Status = BotStatusPublished
	b.PublishedAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewBotPublishedEvent(b))

	return nil
}

// Unpublish takes the bot back to draft without losing configuration
func (b *Bot) Unpublish() error {
	if b.Status != BotStatusPublished {
		return shared.NewDomainError("NOT_PUBLISHED", "Bot is not published")
	}

	b.Status = BotStatusDraft
	b.PublishedAt = nil
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBotUnpublishedEvent(b))

	return nil
}

// Archive retires the bot. Connected channel accounts are deactivated
// by an event handler.
func (b *Bot) Archive() error {
	if b.Status == BotStatusArchived {
		return shared.NewDomainError("ALREADY_ARCHIVED", "Bot is already archived")
	}

	b.Status = BotStatusArchived
	b.PublishedAt = nil
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBotArchivedEvent(b))

	return nil
}

// RotateWidgetKey generates a fresh widget key, invalidating the old
// one immediately
func (b *Bot) RotateWidgetKey() error {
	if b.Status == BotStatusArchived {
		return shared.NewDomainError("BOT_ARCHIVED", "Cannot rotate key of an archived bot")
	}

	key, err := generateWidgetKey()
	if err != nil {
		return shared.NewDomainError("WIDGET_KEY_ERROR", "Failed to generate widget key")
	}

	oldKey := b.WidgetKey
	b.WidgetKey = key
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBotWidgetKeyRotatedEvent(b, oldKey))

	return nil
}

// IsPublished returns true if the bot serves traffic
func (b *Bot) IsPublished() bool {
	return b.Status == BotStatusPublished
}

// IsArchived returns true if the bot is archived
func (b *Bot) IsArchived() bool {
	return b.Status == BotStatusArchived
}

// IsDraft returns true if the bot is in draft
func (b *Bot) IsDraft() bool {
	return b.Status == BotStatusDraft
}

// Validation functions

var (
	slugRegex  = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	colorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

func validateBotName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Bot name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Bot name cannot exceed 200 characters")
	}
	return nil
}

func validateBotSlug(slug string) error {
	slug = strings.ToLower(slug)
	if slug == "" {
		return shared.NewDomainError("INVALID_SLUG", "Bot slug cannot be empty")
	}
	if len(slug) > 100 {
		return shared.NewDomainError("INVALID_SLUG", "Bot slug cannot exceed 100 characters")
	}
	if !slugRegex.MatchString(slug) {
		return shared.NewDomainError("INVALID_SLUG", "Bot slug can only contain lowercase letters, numbers, and hyphens")
	}
	return nil
}

func validateModelSettings(s ModelSettings) error {
	switch s.Provider {
	case ModelProviderOpenAI, ModelProviderAnthropic, ModelProviderGemini:
	default:
		return shared.NewDomainError("INVALID_PROVIDER", "Invalid model provider")
	}
	if strings.TrimSpace(s.Model) == "" {
		return shared.NewDomainError("INVALID_MODEL", "Model cannot be empty")
	}
	if s.Temperature < 0 || s.Temperature > maxTemperature {
		return shared.NewDomainError("INVALID_TEMPERATURE", "Temperature must be between 0 and 2")
	}
	if s.MaxTokens <= 0 || s.MaxTokens > 32768 {
		return shared.NewDomainError("INVALID_MAX_TOKENS", "Max tokens must be between 1 and 32768")
	}
	if len(s.SystemPrompt) > maxSystemPromptLength {
		return shared.NewDomainError("INVALID_SYSTEM_PROMPT", "System prompt cannot exceed 8000 characters")
	}
	return nil
}

func validateWidgetSettings(s WidgetSettings) error {
	if len(s.WelcomeMessage) > 500 {
		return shared.NewDomainError("INVALID_WELCOME_MESSAGE", "Welcome message cannot exceed 500 characters")
	}
	if len(s.Placeholder) > 200 {
		return shared.NewDomainError("INVALID_PLACEHOLDER", "Placeholder cannot exceed 200 characters")
	}
	if s.AccentColor != "" && !colorRegex.MatchString(s.AccentColor) {
		return shared.NewDomainError("INVALID_ACCENT_COLOR", "Accent color must be a #rrggbb hex value")
	}
	switch s.Position {
	case WidgetPositionLeft, WidgetPositionRight:
	default:
		return shared.NewDomainError("INVALID_POSITION", "Widget position must be left or right")
	}
	return nil
}

func generateWidgetKey() (string, error) {
	buf := make([]byte, widgetKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
