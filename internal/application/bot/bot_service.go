package bot

import (
	"context"
	"time"

	"github.com/chatforge/backend/internal/domain/bot"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuotaChecker verifies plan limits before creating billable resources
type QuotaChecker interface {
	CheckBotQuota(ctx context.Context, tenantID uuid.UUID) error
}

// BotService handles bot management operations
type BotService struct {
	botRepo bot.BotRepository
	quota   QuotaChecker
	logger  *zap.Logger
}

// NewBotService creates a new bot service
func NewBotService(
	botRepo bot.BotRepository,
	quota QuotaChecker,
	logger *zap.Logger,
) *BotService {
	return &BotService{
		botRepo: botRepo,
		quota:   quota,
		logger:  logger,
	}
}

// CreateBotInput contains input for creating a bot
type CreateBotInput struct {
	TenantID    uuid.UUID
	Name        string
	Slug        string
	Description string
}

// UpdateBotInput contains input for updating a bot
type UpdateBotInput struct {
	ID          uuid.UUID
	Name        string
	Description string
}

// ModelSettingsInput contains input for updating a bot's model settings
type ModelSettingsInput struct {
	Provider     string
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// WidgetSettingsInput contains input for updating a bot's widget settings
type WidgetSettingsInput struct {
	WelcomeMessage string
	Placeholder    string
	AccentColor    string
	Position       string
	CollectEmail   bool
	ShowSources    bool
}

// RetrievalInput contains input for tuning knowledge retrieval
type RetrievalInput struct {
	ID       uuid.UUID
	TopK     int
	MinScore float64
}

// ModelSettingsDTO represents a bot's model settings
type ModelSettingsDTO struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	SystemPrompt string  `json:"system_prompt"`
}

// WidgetSettingsDTO represents a bot's widget settings
type WidgetSettingsDTO struct {
	WelcomeMessage string `json:"welcome_message"`
	Placeholder    string `json:"placeholder"`
	AccentColor    string `json:"accent_color"`
	Position       string `json:"position"`
	CollectEmail   bool   `json:"collect_email"`
	ShowSources    bool   `json:"show_sources"`
}

// BotDTO represents bot data transfer object
type BotDTO struct {
	ID                uuid.UUID         `json:"id"`
	TenantID          uuid.UUID         `json:"tenant_id"`
	Name              string            `json:"name"`
	Slug              string            `json:"slug"`
	Description       string            `json:"description,omitempty"`
	Status            string            `json:"status"`
	ModelSettings     ModelSettingsDTO  `json:"model_settings"`
	WidgetSettings    WidgetSettingsDTO `json:"widget_settings"`
	WidgetKey         string            `json:"widget_key"`
	RetrievalTopK     int               `json:"retrieval_top_k"`
	RetrievalMinScore float64           `json:"retrieval_min_score"`
	PublishedAt       *time.Time        `json:"published_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// BotListResult represents paginated bot list result
type BotListResult struct {
	Bots       []BotDTO `json:"bots"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
}

// BotStatsDTO contains bot statistics for a tenant
type BotStatsDTO struct {
	Total     int64 `json:"total"`
	Draft     int64 `json:"draft"`
	Published int64 `json:"published"`
	Archived  int64 `json:"archived"`
}

// ListBotsInput contains input for listing bots
type ListBotsInput struct {
	Keyword  string
	Status   string
	Page     int
	PageSize int
	SortBy   string
	SortDir  string
}

// Create creates a new bot in draft status
func (s *BotService) Create(ctx context.Context, input CreateBotInput) (*BotDTO, error) {
	s.logger.Info("Creating new bot",
		zap.String("name", input.Name),
		zap.String("slug", input.Slug),
		zap.String("tenant_id", input.TenantID.String()))

	// Enforce the plan's bot limit before touching the database
	if s.quota != nil {
		if err := s.quota.CheckBotQuota(ctx, input.TenantID); err != nil {
			return nil, err
		}
	}

	exists, err := s.botRepo.ExistsBySlug(ctx, input.Slug)
	if err != nil {
		s.logger.Error("Failed to check slug existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check slug availability")
	}
	if exists {
		return nil, shared.NewDomainError("SLUG_EXISTS", "A bot with this slug already exists")
	}

	b, err := bot.NewBot(input.TenantID, input.Name, input.Slug)
	if err != nil {
		return nil, err
	}

	if input.Description != "" {
		if err := b.Update(input.Name, input.Description); err != nil {
			return nil, err
		}
	}

	if err := s.botRepo.Create(ctx, b); err != nil {
		s.logger.Error("Failed to create bot", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create bot")
	}

	s.logger.Info("Bot created",
		zap.String("bot_id", b.ID.String()),
		zap.String("slug", b.Slug))

	return s.toBotDTO(b), nil
}

// GetByID retrieves a bot by ID
func (s *BotService) GetByID(ctx context.Context, id uuid.UUID) (*BotDTO, error) {
	b, err := s.findBot(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toBotDTO(b), nil
}

// ExistsForTenant reports whether a bot exists within the current tenant.
// Other contexts use it before attaching channels or knowledge to a bot.
func (s *BotService) ExistsForTenant(ctx context.Context, botID uuid.UUID) (bool, error) {
	_, err := s.botRepo.FindByID(ctx, botID)
	if err != nil {
		if err == shared.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetBySlug retrieves a bot by its tenant-unique slug
func (s *BotService) GetBySlug(ctx context.Context, slug string) (*BotDTO, error) {
	b, err := s.botRepo.FindBySlug(ctx, slug)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("BOT_NOT_FOUND", "Bot not found")
		}
		s.logger.Error("Failed to find bot by slug", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find bot")
	}
	return s.toBotDTO(b), nil
}

// List returns bots for the current tenant with pagination
func (s *BotService) List(ctx context.Context, input ListBotsInput) (*BotListResult, error) {
	filter := bot.NewBotFilter()
	if input.Keyword != "" {
		filter = filter.WithKeyword(input.Keyword)
	}
	if input.Status != "" {
		status := bot.BotStatus(input.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError("INVALID_STATUS", "Invalid bot status")
		}
		filter = filter.WithStatus(status)
	}
	if input.Page > 0 && input.PageSize > 0 {
		filter = filter.WithPagination(input.Page, input.PageSize)
	}
	if input.SortBy != "" {
		filter = filter.WithSorting(input.SortBy, input.SortDir)
	}

	bots, total, err := s.botRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list bots", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list bots")
	}

	dtos := make([]BotDTO, len(bots))
	for i, b := range bots {
		dtos[i] = *s.toBotDTO(b)
	}

	totalPages := int(total) / filter.Limit()
	if int(total)%filter.Limit() > 0 {
		totalPages++
	}

	return &BotListResult{
		Bots:       dtos,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.Limit(),
		TotalPages: totalPages,
	}, nil
}

// Update updates a bot's basic information
func (s *BotService) Update(ctx context.Context, input UpdateBotInput) (*BotDTO, error) {
	b, err := s.findBot(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if err := b.Update(input.Name, input.Description); err != nil {
		return nil, err
	}

	if err := s.botRepo.Update(ctx, b); err != nil {
		s.logger.Error("Failed to update bot", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update bot")
	}

	return s.toBotDTO(b), nil
}

// UpdateModelSettings replaces a bot's model settings
func (s *BotService) UpdateModelSettings(ctx context.Context, id uuid.UUID, input ModelSettingsInput) (*BotDTO, error) {
	b, err := s.findBot(ctx, id)
	if err != nil {
		return nil, err
	}

	settings := bot.ModelSettings{
		Provider:     bot.ModelProvider(input.Provider),
		Model:        input.Model,
		Temperature:  input.Temperature,
		MaxTokens:    input.MaxTokens,
		SystemPrompt: input.SystemPrompt,
	}
	if err := b.UpdateModelSettings(settings); err != nil {
		return nil, err
	}

	if err := s.botRepo.Update(ctx, b); err != nil {
		s.logger.Error("Failed to update model settings", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update model settings")
	}

	s.logger.Info("Bot model settings updated",
		zap.String("bot_id", b.ID.String()),
		zap.String("provider", input.Provider),
		zap.String("model", input.Model))

	return s.toBotDTO(b), nil
}

// UpdateWidgetSettings replaces a bot's widget settings
func (s *BotService) UpdateWidgetSettings(ctx context.Context, id uuid.UUID, input WidgetSettingsInput) (*BotDTO, error) {
	b, err := s.findBot(ctx, id)
	if err != nil {
		return nil, err
	}

	settings := bot.WidgetSettings{
		WelcomeMessage: input.WelcomeMessage,
		Placeholder:    input.Placeholder,
		AccentColor:    input.AccentColor,
		Position:       bot.WidgetPosition(input.Position),
		CollectEmail:   input.CollectEmail,
		ShowSources:    input.ShowSources,
	}
	if err := b.UpdateWidgetSettings(settings); err != nil {
		return nil, err
	}

	if err := s.botRepo.Update(ctx, b); err != nil {
		s.logger.Error("Failed to update widget settings", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update widget settings")
	}

	return s.toBotDTO(b), nil
}

// SetRetrieval tunes a bot's knowledge retrieval parameters
func (s *BotService) SetRetrieval(ctx context.Context, input RetrievalInput) (*BotDTO, error) {
	b, err := s.findBot(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if err := b.SetRetrieval(input.TopK, input.MinScore); err != nil {
		return nil, err
	}

	if err := s.botRepo.Update(ctx, b); err != nil {
		s.logger.Error("Failed to update retrieval settings", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update retrieval settings")
	}

	return s.toBotDTO(b), nil
}

// Publish makes a bot live
func (s *BotService) Publish(ctx context.Context, id uuid.UUID) (*BotDTO, error) {
	b, err := s.findBot(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.Publish(); err != nil {
		return nil, err
	}

	if err := s.botRepo.Update(ctx, b); err != nil {
		s.logger.Error("Failed to publish bot", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to publish bot")
	}

	s.logger.Info("Bot published", zap.String("bot_id", b.ID.String()))

	return s.toBotDTO(b), nil
}

// Unpublish takes a bot back to draft
func (s *BotService) Unpublish(ctx context.Context, id uuid.UUID) (*BotDTO, error) {
	b, err := s.findBot(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.Unpublish(); err != nil {
		return nil, err
	}

	if err := s.botRepo.Update(ctx, b); err != nil {
		s.logger.Error("Failed to unpublish bot", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to unpublish bot")
	}

	s.logger.Info("Bot unpublished", zap.String("bot_id", b.ID.String()))

	return s.toBotDTO(b), nil
}

// Archive retires a bot. Channel accounts attached to it are deactivated
// by an event handler.
func (s *BotService) Archive(ctx context.Context, id uuid.UUID) (*BotDTO, error) {
	b, err := s.findBot(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.Archive(); err != nil {
		return nil, err
	}

	if err := s.botRepo.Update(ctx, b); err != nil {
		s.logger.Error("Failed to archive bot", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to archive bot")
	}

	s.logger.Info("Bot archived", zap.String("bot_id", b.ID.String()))

	return s.toBotDTO(b), nil
}

// RotateWidgetKey generates a fresh widget key for a bot. The old key
// stops working immediately.
func (s *BotService) RotateWidgetKey(ctx context.Context, id uuid.UUID) (*BotDTO, error) {
	b, err := s.findBot(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := b.RotateWidgetKey(); err != nil {
		return nil, err
	}

	if err := s.botRepo.Update(ctx, b); err != nil {
		s.logger.Error("Failed to rotate widget key", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to rotate widget key")
	}

	s.logger.Info("Bot widget key rotated", zap.String("bot_id", b.ID.String()))

	return s.toBotDTO(b), nil
}

// Delete deletes a bot. Only archived bots can be deleted so that
// conversation history is never dropped by accident.
func (s *BotService) Delete(ctx context.Context, id uuid.UUID) error {
	b, err := s.findBot(ctx, id)
	if err != nil {
		return err
	}

	if !b.IsArchived() {
		return shared.NewDomainError("BOT_NOT_ARCHIVED", "Only archived bots can be deleted")
	}

	if err := s.botRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete bot", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete bot")
	}

	s.logger.Info("Bot deleted", zap.String("bot_id", id.String()))

	return nil
}

// GetStats returns bot statistics for the current tenant
func (s *BotService) GetStats(ctx context.Context) (*BotStatsDTO, error) {
	total, err := s.botRepo.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to count bots", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to get bot statistics")
	}

	stats := &BotStatsDTO{Total: total}

	counts := []struct {
		status bot.BotStatus
		target *int64
	}{
		{bot.BotStatusDraft, &stats.Draft},
		{bot.BotStatusPublished, &stats.Published},
		{bot.BotStatusArchived, &stats.Archived},
	}
	for _, c := range counts {
		n, err := s.botRepo.CountByStatus(ctx, c.status)
		if err != nil {
			s.logger.Error("Failed to count bots by status",
				zap.String("status", string(c.status)),
				zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to get bot statistics")
		}
		*c.target = n
	}

	return stats, nil
}

func (s *BotService) findBot(ctx context.Context, id uuid.UUID) (*bot.Bot, error) {
	b, err := s.botRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("BOT_NOT_FOUND", "Bot not found")
		}
		s.logger.Error("Failed to find bot", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find bot")
	}
	return b, nil
}

func (s *BotService) toBotDTO(b *bot.Bot) *BotDTO {
	return &BotDTO{
		ID:          b.ID,
		TenantID:    b.TenantID,
		Name:        b.Name,
		Slug:        b.Slug,
		Description: b.Description,
		Status:      string(b.Status),
		ModelSettings: ModelSettingsDTO{
			Provider:     string(b.ModelSettings.Provider),
			Model:        b.ModelSettings.Model,
			Temperature:  b.ModelSettings.Temperature,
			MaxTokens:    b.ModelSettings.MaxTokens,
			SystemPrompt: b.ModelSettings.SystemPrompt,
		},
		WidgetSettings: WidgetSettingsDTO{
			WelcomeMessage: b.WidgetSettings.WelcomeMessage,
			Placeholder:    b.WidgetSettings.Placeholder,
			AccentColor:    b.WidgetSettings.AccentColor,
			Position:       string(b.WidgetSettings.Position),
			CollectEmail:   b.WidgetSettings.CollectEmail,
			ShowSources:    b.WidgetSettings.ShowSources,
		},
		WidgetKey:         b.WidgetKey,
		RetrievalTopK:     b.RetrievalTopK,
		RetrievalMinScore: b.RetrievalMinScore,
		PublishedAt:       b.PublishedAt,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}
