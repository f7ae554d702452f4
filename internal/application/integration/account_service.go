package integration

import (
	"context"
	"errors"
	"time"

	"github.com/chatforge/backend/internal/domain/integration"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService manages a tenant's commerce and CRM platform
// connections. One account per platform per tenant; credentials are
// write-only through this service and encrypted by the persistence
// layer.
type AccountService struct {
	commerceRepo integration.CommerceAccountRepository
	crmRepo      integration.CRMAccountRepository
	commerce     integration.CommercePlatformRegistry
	crm          integration.CRMPlatformRegistry
	logger       *zap.Logger
}

// NewAccountService creates a new integration account service
func NewAccountService(
	commerceRepo integration.CommerceAccountRepository,
	crmRepo integration.CRMAccountRepository,
	commerce integration.CommercePlatformRegistry,
	crm integration.CRMPlatformRegistry,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		commerceRepo: commerceRepo,
		crmRepo:      crmRepo,
		commerce:     commerce,
		crm:          crm,
		logger:       logger,
	}
}

// ConnectCommerceInput contains input for connecting a commerce platform
type ConnectCommerceInput struct {
	TenantID    uuid.UUID
	Platform    string
	ShopDomain  string
	Credentials string
}

// ConnectCRMInput contains input for connecting a CRM platform
type ConnectCRMInput struct {
	TenantID    uuid.UUID
	Platform    string
	Credentials string
}

// CommerceAccountDTO represents commerce account data transfer object.
// Credentials never leave the application layer.
type CommerceAccountDTO struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Platform    string     `json:"platform"`
	DisplayName string     `json:"display_name"`
	ShopDomain  string     `json:"shop_domain"`
	Status      string     `json:"status"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CRMAccountDTO represents CRM account data transfer object
type CRMAccountDTO struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Platform    string     `json:"platform"`
	DisplayName string     `json:"display_name"`
	Status      string     `json:"status"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ---------------------------------------------------------------------------
// Commerce accounts
// ---------------------------------------------------------------------------

// ConnectCommerce connects the tenant's store to a commerce platform
func (s *AccountService) ConnectCommerce(ctx context.Context, input ConnectCommerceInput) (*CommerceAccountDTO, error) {
	platform := integration.CommercePlatformCode(input.Platform)

	if s.commerce != nil {
		if _, err := s.commerce.GetPlatform(platform); err != nil {
			return nil, err
		}
	}

	exists, err := s.commerceRepo.ExistsByPlatform(ctx, platform)
	if err != nil {
		s.logger.Error("Failed to check commerce platform connection",
			zap.String("tenant_id", input.TenantID.String()),
			zap.String("platform", input.Platform),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to verify platform connection")
	}
	if exists {
		return nil, shared.ErrAlreadyExists
	}

	s.logger.Info("Connecting commerce platform",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("platform", input.Platform),
		zap.String("shop_domain", input.ShopDomain))

	a, err := integration.NewCommerceAccount(input.TenantID, platform, input.ShopDomain, input.Credentials)
	if err != nil {
		return nil, err
	}

	if err := s.commerceRepo.Create(ctx, a); err != nil {
		s.logger.Error("Failed to create commerce account",
			zap.String("tenant_id", input.TenantID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to connect commerce platform")
	}

	return s.toCommerceDTO(a), nil
}

// UpdateCommerceCredentials rotates a commerce account's secrets and
// clears its error state
func (s *AccountService) UpdateCommerceCredentials(ctx context.Context, id uuid.UUID, credentials string) (*CommerceAccountDTO, error) {
	a, err := s.findCommerceAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.UpdateCredentials(credentials); err != nil {
		return nil, err
	}

	if err := s.commerceRepo.Update(ctx, a); err != nil {
		return nil, s.commerceUpdateFailed(a, err)
	}

	s.logger.Info("Rotated commerce credentials",
		zap.String("account_id", a.ID.String()),
		zap.String("platform", string(a.Platform)))

	return s.toCommerceDTO(a), nil
}

// ActivateCommerce resumes lookups through a commerce account
func (s *AccountService) ActivateCommerce(ctx context.Context, id uuid.UUID) (*CommerceAccountDTO, error) {
	a, err := s.findCommerceAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.Activate(); err != nil {
		return nil, err
	}

	if err := s.commerceRepo.Update(ctx, a); err != nil {
		return nil, s.commerceUpdateFailed(a, err)
	}

	return s.toCommerceDTO(a), nil
}

// DeactivateCommerce stops lookups through a commerce account
func (s *AccountService) DeactivateCommerce(ctx context.Context, id uuid.UUID) (*CommerceAccountDTO, error) {
	a, err := s.findCommerceAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.Deactivate(); err != nil {
		return nil, err
	}

	if err := s.commerceRepo.Update(ctx, a); err != nil {
		return nil, s.commerceUpdateFailed(a, err)
	}

	return s.toCommerceDTO(a), nil
}

// DisconnectCommerce removes a commerce platform connection
func (s *AccountService) DisconnectCommerce(ctx context.Context, id uuid.UUID) error {
	a, err := s.findCommerceAccount(ctx, id)
	if err != nil {
		return err
	}

	s.logger.Info("Disconnecting commerce platform",
		zap.String("account_id", a.ID.String()),
		zap.String("platform", string(a.Platform)))

	if err := s.commerceRepo.Delete(ctx, a.ID); err != nil {
		s.logger.Error("Failed to delete commerce account",
			zap.String("account_id", a.ID.String()),
			zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to disconnect commerce platform")
	}

	return nil
}

// GetCommerce returns a commerce account by ID
func (s *AccountService) GetCommerce(ctx context.Context, id uuid.UUID) (*CommerceAccountDTO, error) {
	a, err := s.findCommerceAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toCommerceDTO(a), nil
}

// ListCommerce returns all commerce accounts of the current tenant
func (s *AccountService) ListCommerce(ctx context.Context) ([]CommerceAccountDTO, error) {
	accounts, err := s.commerceRepo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list commerce accounts", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list commerce accounts")
	}

	dtos := make([]CommerceAccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = *s.toCommerceDTO(a)
	}
	return dtos, nil
}

// ---------------------------------------------------------------------------
// CRM accounts
// ---------------------------------------------------------------------------

// ConnectCRM connects the tenant to a CRM platform
func (s *AccountService) ConnectCRM(ctx context.Context, input ConnectCRMInput) (*CRMAccountDTO, error) {
	platform := integration.CRMPlatformCode(input.Platform)

	if s.crm != nil {
		if _, err := s.crm.GetPlatform(platform); err != nil {
			return nil, err
		}
	}

	exists, err := s.crmRepo.ExistsByPlatform(ctx, platform)
	if err != nil {
		s.logger.Error("Failed to check CRM platform connection",
			zap.String("tenant_id", input.TenantID.String()),
			zap.String("platform", input.Platform),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to verify platform connection")
	}
	if exists {
		return nil, shared.ErrAlreadyExists
	}

	s.logger.Info("Connecting CRM platform",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("platform", input.Platform))

	a, err := integration.NewCRMAccount(input.TenantID, platform, input.Credentials)
	if err != nil {
		return nil, err
	}

	if err := s.crmRepo.Create(ctx, a); err != nil {
		s.logger.Error("Failed to create CRM account",
			zap.String("tenant_id", input.TenantID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to connect CRM platform")
	}

	return s.toCRMDTO(a), nil
}

// UpdateCRMCredentials rotates a CRM account's secrets and clears its
// error state
func (s *AccountService) UpdateCRMCredentials(ctx context.Context, id uuid.UUID, credentials string) (*CRMAccountDTO, error) {
	a, err := s.findCRMAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.UpdateCredentials(credentials); err != nil {
		return nil, err
	}

	if err := s.crmRepo.Update(ctx, a); err != nil {
		return nil, s.crmUpdateFailed(a, err)
	}

	s.logger.Info("Rotated CRM credentials",
		zap.String("account_id", a.ID.String()),
		zap.String("platform", string(a.Platform)))

	return s.toCRMDTO(a), nil
}

// ActivateCRM resumes lead syncing through a CRM account
func (s *AccountService) ActivateCRM(ctx context.Context, id uuid.UUID) (*CRMAccountDTO, error) {
	a, err := s.findCRMAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.Activate(); err != nil {
		return nil, err
	}

	if err := s.crmRepo.Update(ctx, a); err != nil {
		return nil, s.crmUpdateFailed(a, err)
	}

	return s.toCRMDTO(a), nil
}

// DeactivateCRM stops lead syncing through a CRM account
func (s *AccountService) DeactivateCRM(ctx context.Context, id uuid.UUID) (*CRMAccountDTO, error) {
	a, err := s.findCRMAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.Deactivate(); err != nil {
		return nil, err
	}

	if err := s.crmRepo.Update(ctx, a); err != nil {
		return nil, s.crmUpdateFailed(a, err)
	}

	return s.toCRMDTO(a), nil
}

// DisconnectCRM removes a CRM platform connection
func (s *AccountService) DisconnectCRM(ctx context.Context, id uuid.UUID) error {
	a, err := s.findCRMAccount(ctx, id)
	if err != nil {
		return err
	}

	s.logger.Info("Disconnecting CRM platform",
		zap.String("account_id", a.ID.String()),
		zap.String("platform", string(a.Platform)))

	if err := s.crmRepo.Delete(ctx, a.ID); err != nil {
		s.logger.Error("Failed to delete CRM account",
			zap.String("account_id", a.ID.String()),
			zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to disconnect CRM platform")
	}

	return nil
}

// GetCRM returns a CRM account by ID
func (s *AccountService) GetCRM(ctx context.Context, id uuid.UUID) (*CRMAccountDTO, error) {
	a, err := s.findCRMAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toCRMDTO(a), nil
}

// ListCRM returns all CRM accounts of the current tenant
func (s *AccountService) ListCRM(ctx context.Context) ([]CRMAccountDTO, error) {
	accounts, err := s.crmRepo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list CRM accounts", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list CRM accounts")
	}

	dtos := make([]CRMAccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = *s.toCRMDTO(a)
	}
	return dtos, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *AccountService) findCommerceAccount(ctx context.Context, id uuid.UUID) (*integration.CommerceAccount, error) {
	a, err := s.commerceRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INTEGRATION_ACCOUNT_NOT_FOUND", "Integration account not found")
		}
		s.logger.Error("Failed to find commerce account",
			zap.String("account_id", id.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find commerce account")
	}
	return a, nil
}

func (s *AccountService) findCRMAccount(ctx context.Context, id uuid.UUID) (*integration.CRMAccount, error) {
	a, err := s.crmRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INTEGRATION_ACCOUNT_NOT_FOUND", "Integration account not found")
		}
		s.logger.Error("Failed to find CRM account",
			zap.String("account_id", id.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find CRM account")
	}
	return a, nil
}

func (s *AccountService) commerceUpdateFailed(a *integration.CommerceAccount, err error) error {
	s.logger.Error("Failed to update commerce account",
		zap.String("account_id", a.ID.String()),
		zap.Error(err))
	return shared.NewDomainError("INTERNAL_ERROR", "Failed to update commerce account")
}

func (s *AccountService) crmUpdateFailed(a *integration.CRMAccount, err error) error {
	s.logger.Error("Failed to update CRM account",
		zap.String("account_id", a.ID.String()),
		zap.Error(err))
	return shared.NewDomainError("INTERNAL_ERROR", "Failed to update CRM account")
}

// toCommerceDTO converts a domain commerce account to DTO
func (s *AccountService) toCommerceDTO(a *integration.CommerceAccount) *CommerceAccountDTO {
	return &CommerceAccountDTO{
		ID:          a.ID,
		TenantID:    a.TenantID,
		Platform:    string(a.Platform),
		DisplayName: a.Platform.DisplayName(),
		ShopDomain:  a.ShopDomain,
		Status:      string(a.Status),
		LastError:   a.LastError,
		LastErrorAt: a.LastErrorAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// toCRMDTO converts a domain CRM account to DTO
func (s *AccountService) toCRMDTO(a *integration.CRMAccount) *CRMAccountDTO {
	return &CRMAccountDTO{
		ID:          a.ID,
		TenantID:    a.TenantID,
		Platform:    string(a.Platform),
		DisplayName: a.Platform.DisplayName(),
		Status:      string(a.Status),
		LastError:   a.LastError,
		LastErrorAt: a.LastErrorAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
