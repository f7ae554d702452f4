package handler

import (
	"context"

	integrationapp "github.com/chatforge/backend/internal/application/integration"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IntegrationHandler handles commerce and CRM integration API endpoints
type IntegrationHandler struct {
	BaseHandler
	accountService *integrationapp.AccountService
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(accountService *integrationapp.AccountService) *IntegrationHandler {
	return &IntegrationHandler{accountService: accountService}
}

// ConnectCommerceRequest represents a request to connect a commerce platform
// @Description Request body for connecting a Shopify or WooCommerce store
type ConnectCommerceRequest struct {
	Platform    string `json:"platform" binding:"required,oneof=shopify woocommerce" example:"shopify"`
	ShopDomain  string `json:"shop_domain" binding:"required,max=300" example:"acme.myshopify.com"`
	Credentials string `json:"credentials" binding:"required" example:"shpat_xxxxx"`
}

// ConnectCRMRequest represents a request to connect a CRM platform
// @Description Request body for connecting a HubSpot account
type ConnectCRMRequest struct {
	Platform    string `json:"platform" binding:"required,oneof=hubspot" example:"hubspot"`
	Credentials string `json:"credentials" binding:"required" example:"pat-na1-xxxxx"`
}

// UpdateIntegrationCredentialsRequest represents a credential rotation
// @Description Request body for rotating integration credentials
type UpdateIntegrationCredentialsRequest struct {
	Credentials string `json:"credentials" binding:"required" example:"shpat_newtoken"`
}

// ConnectCommerce godoc
// @Summary      Connect a commerce platform
// @Description  Connect the tenant's store so bots can answer product and order questions
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        request body ConnectCommerceRequest true "Commerce connection request"
// @Success      201 {object} dto.Response{data=integrationapp.CommerceAccountDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /integrations/commerce [post]
func (h *IntegrationHandler) ConnectCommerce(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ConnectCommerceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.accountService.ConnectCommerce(c.Request.Context(), integrationapp.ConnectCommerceInput{
		TenantID:    tenantID,
		Platform:    req.Platform,
		ShopDomain:  req.ShopDomain,
		Credentials: req.Credentials,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// ListCommerce godoc
// @Summary      List commerce accounts
// @Tags         integrations
// @Produce      json
// @Success      200 {object} dto.Response{data=[]integrationapp.CommerceAccountDTO}
// @Security     BearerAuth
// @Router       /integrations/commerce [get]
func (h *IntegrationHandler) ListCommerce(c *gin.Context) {
	result, err := h.accountService.ListCommerce(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// GetCommerce godoc
// @Summary      Get commerce account by ID
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Commerce account ID" format(uuid)
// @Success      200 {object} dto.Response{data=integrationapp.CommerceAccountDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /integrations/commerce/{id} [get]
func (h *IntegrationHandler) GetCommerce(c *gin.Context) {
	h.commerceByID(c, h.accountService.GetCommerce)
}

// UpdateCommerceCredentials godoc
// @Summary      Rotate commerce credentials
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        id path string true "Commerce account ID" format(uuid)
// @Param        request body UpdateIntegrationCredentialsRequest true "New credentials"
// @Success      200 {object} dto.Response{data=integrationapp.CommerceAccountDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /integrations/commerce/{id}/credentials [put]
func (h *IntegrationHandler) UpdateCommerceCredentials(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	var req UpdateIntegrationCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.accountService.UpdateCommerceCredentials(c.Request.Context(), accountID, req.Credentials)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ActivateCommerce godoc
// @Summary      Activate a commerce account
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Commerce account ID" format(uuid)
// @Success      200 {object} dto.Response{data=integrationapp.CommerceAccountDTO}
// @Security     BearerAuth
// @Router       /integrations/commerce/{id}/activate [post]
func (h *IntegrationHandler) ActivateCommerce(c *gin.Context) {
	h.commerceByID(c, h.accountService.ActivateCommerce)
}

// DeactivateCommerce godoc
// @Summary      Deactivate a commerce account
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Commerce account ID" format(uuid)
// @Success      200 {object} dto.Response{data=integrationapp.CommerceAccountDTO}
// @Security     BearerAuth
// @Router       /integrations/commerce/{id}/deactivate [post]
func (h *IntegrationHandler) DeactivateCommerce(c *gin.Context) {
	h.commerceByID(c, h.accountService.DeactivateCommerce)
}

// DisconnectCommerce godoc
// @Summary      Disconnect a commerce account
// @Tags         integrations
// @Produce      json
// @Param        id path string true "Commerce account ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /integrations/commerce/{id} [delete]
func (h *IntegrationHandler) DisconnectCommerce(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	if err := h.accountService.DisconnectCommerce(c.Request.Context(), accountID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// ConnectCRM godoc
// @Summary      Connect a CRM platform
// @Description  Connect a CRM so identified visitors sync as leads
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        request body ConnectCRMRequest true "CRM connection request"
// @Success      201 {object} dto.Response{data=integrationapp.CRMAccountDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /integrations/crm [post]
func (h *IntegrationHandler) ConnectCRM(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ConnectCRMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.accountService.ConnectCRM(c.Request.Context(), integrationapp.ConnectCRMInput{
		TenantID:    tenantID,
		Platform:    req.Platform,
		Credentials: req.Credentials,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// ListCRM godoc
// @Summary      List CRM accounts
// @Tags         integrations
// @Produce      json
// @Success      200 {object} dto.Response{data=[]integrationapp.CRMAccountDTO}
// @Security     BearerAuth
// @Router       /integrations/crm [get]
func (h *IntegrationHandler) ListCRM(c *gin.Context) {
	result, err := h.accountService.ListCRM(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// GetCRM godoc
// @Summary      Get CRM account by ID
// @Tags         integrations
// @Produce      json
// @Param        id path string true "CRM account ID" format(uuid)
// @Success      200 {object} dto.Response{data=integrationapp.CRMAccountDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /integrations/crm/{id} [get]
func (h *IntegrationHandler) GetCRM(c *gin.Context) {
	h.crmByID(c, h.accountService.GetCRM)
}

// UpdateCRMCredentials godoc
// @Summary      Rotate CRM credentials
// @Tags         integrations
// @Accept       json
// @Produce      json
// @Param        id path string true "CRM account ID" format(uuid)
// @Param        request body UpdateIntegrationCredentialsRequest true "New credentials"
// @Success      200 {object} dto.Response{data=integrationapp.CRMAccountDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /integrations/crm/{id}/credentials [put]
func (h *IntegrationHandler) UpdateCRMCredentials(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	var req UpdateIntegrationCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.accountService.UpdateCRMCredentials(c.Request.Context(), accountID, req.Credentials)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ActivateCRM godoc
// @Summary      Activate a CRM account
// @Tags         integrations
// @Produce      json
// @Param        id path string true "CRM account ID" format(uuid)
// @Success      200 {object} dto.Response{data=integrationapp.CRMAccountDTO}
// @Security     BearerAuth
// @Router       /integrations/crm/{id}/activate [post]
func (h *IntegrationHandler) ActivateCRM(c *gin.Context) {
	h.crmByID(c, h.accountService.ActivateCRM)
}

// DeactivateCRM godoc
// @Summary      Deactivate a CRM account
// @Tags         integrations
// @Produce      json
// @Param        id path string true "CRM account ID" format(uuid)
// @Success      200 {object} dto.Response{data=integrationapp.CRMAccountDTO}
// @Security     BearerAuth
// @Router       /integrations/crm/{id}/deactivate [post]
func (h *IntegrationHandler) DeactivateCRM(c *gin.Context) {
	h.crmByID(c, h.accountService.DeactivateCRM)
}

// DisconnectCRM godoc
// @Summary      Disconnect a CRM account
// @Tags         integrations
// @Produce      json
// @Param        id path string true "CRM account ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /integrations/crm/{id} [delete]
func (h *IntegrationHandler) DisconnectCRM(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	if err := h.accountService.DisconnectCRM(c.Request.Context(), accountID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

func (h *IntegrationHandler) commerceByID(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*integrationapp.CommerceAccountDTO, error)) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	result, err := apply(c.Request.Context(), accountID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

func (h *IntegrationHandler) crmByID(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*integrationapp.CRMAccountDTO, error)) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid account ID format")
		return
	}

	result, err := apply(c.Request.Context(), accountID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
