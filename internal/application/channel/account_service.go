package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chatforge/backend/internal/domain/channel"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuotaChecker verifies plan limits before creating billable resources
type QuotaChecker interface {
	CheckChannelQuota(ctx context.Context, tenantID uuid.UUID) error
}

// BotResolver confirms that a bot exists before a channel is attached to it
type BotResolver interface {
	ExistsForTenant(ctx context.Context, botID uuid.UUID) (bool, error)
}

// AccountService handles channel account management
type AccountService struct {
	accountRepo channel.ChannelAccountRepository
	connectors  *channel.ConnectorRegistry
	quota       QuotaChecker
	bots        BotResolver
	logger      *zap.Logger
}

// NewAccountService creates a new channel account service
func NewAccountService(
	accountRepo channel.ChannelAccountRepository,
	connectors *channel.ConnectorRegistry,
	quota QuotaChecker,
	bots BotResolver,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		connectors:  connectors,
		quota:       quota,
		bots:        bots,
		logger:      logger,
	}
}

// CreateAccountInput contains input for connecting a channel account
type CreateAccountInput struct {
	TenantID      uuid.UUID
	BotID         uuid.UUID
	ChannelType   string
	Name          string
	Credentials   string
	WebhookSecret string
}

// UpdateCredentialsInput contains input for rotating account credentials
type UpdateCredentialsInput struct {
	ID            uuid.UUID
	Credentials   string
	WebhookSecret string
}

// ListAccountsInput contains input for listing channel accounts
type ListAccountsInput struct {
	BotID       *uuid.UUID
	ChannelType string
	Status      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// AccountDTO represents channel account data transfer object.
// Credentials never leave the application layer.
type AccountDTO struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	BotID       uuid.UUID  `json:"bot_id"`
	ChannelType string     `json:"channel_type"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	WebhookPath string     `json:"webhook_path"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AccountListResult represents paginated channel account list result
type AccountListResult struct {
	Accounts   []AccountDTO `json:"accounts"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

// Create connects a bot to an external messaging account
func (s *AccountService) Create(ctx context.Context, input CreateAccountInput) (*AccountDTO, error) {
	if s.quota != nil {
		if err := s.quota.CheckChannelQuota(ctx, input.TenantID); err != nil {
			return nil, err
		}
	}

	channelType := channel.ChannelType(input.ChannelType)
	if s.connectors != nil {
		if _, err := s.connectors.Get(channelType); err != nil {
			return nil, err
		}
	}

	if s.bots != nil {
		exists, err := s.bots.ExistsForTenant(ctx, input.BotID)
		if err != nil {
			s.logger.Error("Failed to check bot existence",
				zap.String("bot_id", input.BotID.String()),
				zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to verify bot")
		}
		if !exists {
			return nil, shared.NewDomainError("BOT_NOT_FOUND", "Bot not found")
		}
	}

	s.logger.Info("Connecting channel account",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("bot_id", input.BotID.String()),
		zap.String("channel_type", input.ChannelType))

	a, err := channel.NewChannelAccount(input.TenantID, input.BotID, channelType, input.Name, input.Credentials, input.WebhookSecret)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Create(ctx, a); err != nil {
		s.logger.Error("Failed to create channel account",
			zap.String("tenant_id", input.TenantID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create channel account")
	}

	return s.toDTO(a), nil
}

// Rename updates the display name of an account
func (s *AccountService) Rename(ctx context.Context, id uuid.UUID, name string) (*AccountDTO, error) {
	a, err := s.findAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.Rename(name); err != nil {
		return nil, err
	}

	if err := s.accountRepo.Update(ctx, a); err != nil {
		return nil, s.updateFailed(a, err)
	}

	return s.toDTO(a), nil
}

// UpdateCredentials rotates the account's secrets
func (s *AccountService) UpdateCredentials(ctx context.Context, input UpdateCredentialsInput) (*AccountDTO, error) {
	a, err := s.findAccount(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if err := a.UpdateCredentials(input.Credentials, input.WebhookSecret); err != nil {
		return nil, err
	}

	if err := s.accountRepo.Update(ctx, a); err != nil {
		return nil, s.updateFailed(a, err)
	}

	s.logger.Info("Rotated channel credentials",
		zap.String("account_id", a.ID.String()),
		zap.String("channel_type", string(a.ChannelType)))

	return s.toDTO(a), nil
}

// Activate resumes message handling for an account
func (s *AccountService) Activate(ctx context.Context, id uuid.UUID) (*AccountDTO, error) {
	a, err := s.findAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.Activate(); err != nil {
		return nil, err
	}

	if err := s.accountRepo.Update(ctx, a); err != nil {
		return nil, s.updateFailed(a, err)
	}

	return s.toDTO(a), nil
}

// Deactivate stops message handling for an account
func (s *AccountService) Deactivate(ctx context.Context, id uuid.UUID) (*AccountDTO, error) {
	a, err := s.findAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.Deactivate(); err != nil {
		return nil, err
	}

	if err := s.accountRepo.Update(ctx, a); err != nil {
		return nil, s.updateFailed(a, err)
	}

	return s.toDTO(a), nil
}

// Delete disconnects a channel account
func (s *AccountService) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := s.findAccount(ctx, id)
	if err != nil {
		return err
	}

	s.logger.Info("Deleting channel account",
		zap.String("account_id", a.ID.String()),
		zap.String("channel_type", string(a.ChannelType)))

	if err := s.accountRepo.Delete(ctx, a.ID); err != nil {
		s.logger.Error("Failed to delete channel account",
			zap.String("account_id", a.ID.String()),
			zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete channel account")
	}

	return nil
}

// Get returns a channel account by ID
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*AccountDTO, error) {
	a, err := s.findAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toDTO(a), nil
}

// List returns channel accounts matching the filter with pagination
func (s *AccountService) List(ctx context.Context, input ListAccountsInput) (*AccountListResult, error) {
	filter := channel.NewChannelAccountFilter()
	filter.BotID = input.BotID
	if input.ChannelType != "" {
		ct := channel.ChannelType(input.ChannelType)
		filter.ChannelType = &ct
	}
	if input.Status != "" {
		st := channel.AccountStatus(input.Status)
		filter.Status = &st
	}
	if input.Page > 0 {
		filter.Page = input.Page
	}
	if input.PageSize > 0 {
		filter.PageSize = input.PageSize
	}
	if input.SortBy != "" {
		filter.SortBy = input.SortBy
	}
	if input.SortOrder != "" {
		filter.SortOrder = input.SortOrder
	}

	accounts, total, err := s.accountRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list channel accounts", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list channel accounts")
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = *s.toDTO(a)
	}

	totalPages := int(total) / filter.Limit()
	if int(total)%filter.Limit() > 0 {
		totalPages++
	}

	return &AccountListResult{
		Accounts:   dtos,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.Limit(),
		TotalPages: totalPages,
	}, nil
}

// ListByBot returns all channel accounts attached to a bot
func (s *AccountService) ListByBot(ctx context.Context, botID uuid.UUID) ([]AccountDTO, error) {
	accounts, err := s.accountRepo.FindByBot(ctx, botID)
	if err != nil {
		s.logger.Error("Failed to list channel accounts for bot",
			zap.String("bot_id", botID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list channel accounts")
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = *s.toDTO(a)
	}
	return dtos, nil
}

// DeactivateForBot deactivates every active account of a bot. Used when
// a bot is archived so vendors stop delivering to it.
func (s *AccountService) DeactivateForBot(ctx context.Context, botID uuid.UUID) error {
	accounts, err := s.accountRepo.FindByBot(ctx, botID)
	if err != nil {
		return err
	}

	for _, a := range accounts {
		if !a.IsActive() {
			continue
		}
		if err := a.Deactivate(); err != nil {
			continue
		}
		if err := s.accountRepo.Update(ctx, a); err != nil {
			s.logger.Error("Failed to deactivate channel account",
				zap.String("account_id", a.ID.String()),
				zap.Error(err))
		}
	}

	return nil
}

// findAccount finds a channel account or returns a typed error
func (s *AccountService) findAccount(ctx context.Context, id uuid.UUID) (*channel.ChannelAccount, error) {
	a, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("CHANNEL_ACCOUNT_NOT_FOUND", "Channel account not found")
		}
		s.logger.Error("Failed to find channel account",
			zap.String("account_id", id.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find channel account")
	}
	return a, nil
}

func (s *AccountService) updateFailed(a *channel.ChannelAccount, err error) error {
	s.logger.Error("Failed to update channel account",
		zap.String("account_id", a.ID.String()),
		zap.Error(err))
	return shared.NewDomainError("INTERNAL_ERROR", "Failed to update channel account")
}

// toDTO converts a domain channel account to DTO
func (s *AccountService) toDTO(a *channel.ChannelAccount) *AccountDTO {
	return &AccountDTO{
		ID:          a.ID,
		TenantID:    a.TenantID,
		BotID:       a.BotID,
		ChannelType: string(a.ChannelType),
		Name:        a.Name,
		Status:      string(a.Status),
		WebhookPath: fmt.Sprintf("/api/v1/webhooks/%s/%s", a.ChannelType, a.ID),
		LastError:   a.LastError,
		LastErrorAt: a.LastErrorAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
