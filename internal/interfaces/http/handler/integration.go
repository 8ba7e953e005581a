package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	intgapp "github.com/pazarsync/backend/internal/application/integration"
	"github.com/pazarsync/backend/internal/domain/integration"
)

// IntegrationService is the application surface the handler drives.
type IntegrationService interface {
	Create(ctx context.Context, platform integration.PlatformCode, category integration.Category, name string) (*integration.Integration, error)
	Get(ctx context.Context, id uuid.UUID) (*integration.Integration, error)
	List(ctx context.Context, filter integration.IntegrationFilter) ([]integration.Integration, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Enable(ctx context.Context, id uuid.UUID) (*integration.Integration, error)
	Disable(ctx context.Context, id uuid.UUID) (*integration.Integration, error)
	ConfigureCredentials(ctx context.Context, id uuid.UUID, fields map[string]string, sandbox bool) (*integration.Integration, error)
	Health(ctx context.Context, id uuid.UUID) (*intgapp.HealthReport, error)
	TestConnection(ctx context.Context, id uuid.UUID) (*intgapp.ConnectionTestResult, error)
}

// IntegrationHandler handles integration management API endpoints
type IntegrationHandler struct {
	BaseHandler
	service IntegrationService
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(service IntegrationService) *IntegrationHandler {
	return &IntegrationHandler{service: service}
}

// RegisterRoutes registers integration routes
func (h *IntegrationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	integrations := rg.Group("/integrations")
	{
		integrations.GET("", h.List)
		integrations.POST("", h.Create)
		integrations.GET("/:id", h.Get)
		integrations.DELETE("/:id", h.Delete)
		integrations.PUT("/:id/credentials", h.ConfigureCredentials)
		integrations.POST("/:id/enable", h.Enable)
		integrations.POST("/:id/disable", h.Disable)
		integrations.GET("/:id/health", h.Health)
		integrations.POST("/:id/test", h.TestConnection)
	}
}

// CreateIntegrationRequest represents a request to connect a platform
type CreateIntegrationRequest struct {
	Platform string `json:"platform" binding:"required" example:"trendyol"`
	Category string `json:"category" binding:"required,oneof=marketplace payment shipping einvoice" example:"marketplace"`
	Name     string `json:"name" binding:"max=100" example:"Trendyol Store"`
}

// ConfigureCredentialsRequest represents a credential configuration request.
// Field values are write-only: they are stored in the vault and never
// returned by any endpoint.
type ConfigureCredentialsRequest struct {
	Fields  map[string]string `json:"fields" binding:"required"`
	Sandbox bool              `json:"sandbox"`
}

// IntegrationResponse represents an integration in API responses
type IntegrationResponse struct {
	ID             string  `json:"id"`
	Platform       string  `json:"platform"`
	Category       string  `json:"category"`
	Name           string  `json:"name"`
	Enabled        bool    `json:"enabled"`
	Sandbox        bool    `json:"sandbox"`
	HasCredentials bool    `json:"has_credentials"`
	Health         string  `json:"health"`
	LastSyncAt     *string `json:"last_sync_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func toIntegrationResponse(intg *integration.Integration) IntegrationResponse {
	resp := IntegrationResponse{
		ID:             intg.ID.String(),
		Platform:       intg.Platform.String(),
		Category:       intg.Category.String(),
		Name:           intg.Name,
		Enabled:        intg.Enabled,
		Sandbox:        intg.Sandbox,
		HasCredentials: intg.HasCredentials,
		Health:         intg.Health.String(),
		CreatedAt:      intg.CreatedAt.Format(timeFormat),
		UpdatedAt:      intg.UpdatedAt.Format(timeFormat),
	}
	if intg.LastSyncAt != nil {
		s := intg.LastSyncAt.Format(timeFormat)
		resp.LastSyncAt = &s
	}
	return resp
}

// parsePlatformCode accepts the lowercase wire form used in URLs and bodies.
func parsePlatformCode(raw string) (integration.PlatformCode, error) {
	code := integration.PlatformCode(strings.ToUpper(raw))
	if !code.IsValid() {
		return "", integration.ErrInvalidPlatformCode
	}
	return code, nil
}

// Create connects a new platform integration
func (h *IntegrationHandler) Create(c *gin.Context) {
	var req CreateIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	platform, err := parsePlatformCode(req.Platform)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	intg, err := h.service.Create(c.Request.Context(), platform, integration.Category(req.Category), req.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toIntegrationResponse(intg))
}

// List returns configured integrations with optional filters
func (h *IntegrationHandler) List(c *gin.Context) {
	var filter integration.IntegrationFilter

	if raw := c.Query("platform"); raw != "" {
		platform, err := parsePlatformCode(raw)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		filter.Platform = &platform
	}
	if raw := c.Query("category"); raw != "" {
		category := integration.Category(raw)
		if !category.IsValid() {
			h.HandleError(c, integration.ErrInvalidCategory)
			return
		}
		filter.Category = &category
	}
	if raw := c.Query("enabled"); raw != "" {
		enabled := raw == "true"
		filter.Enabled = &enabled
	}

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]IntegrationResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toIntegrationResponse(&list[i]))
	}
	h.Success(c, resp)
}

// Get returns one integration by ID
func (h *IntegrationHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	intg, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toIntegrationResponse(intg))
}

// Delete disconnects an integration and purges its credentials
func (h *IntegrationHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ConfigureCredentials stores credential fields for an integration
func (h *IntegrationHandler) ConfigureCredentials(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req ConfigureCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	intg, err := h.service.ConfigureCredentials(c.Request.Context(), id, req.Fields, req.Sandbox)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toIntegrationResponse(intg))
}

// Enable turns an integration live
func (h *IntegrationHandler) Enable(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	intg, err := h.service.Enable(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toIntegrationResponse(intg))
}

// Disable pauses an integration
func (h *IntegrationHandler) Disable(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	intg, err := h.service.Disable(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toIntegrationResponse(intg))
}

// Health returns the rolled-up health view of an integration
func (h *IntegrationHandler) Health(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	report, err := h.service.Health(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// TestConnection probes the platform with the stored credentials
func (h *IntegrationHandler) TestConnection(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.service.TestConnection(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

func (h *IntegrationHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid integration ID")
		return uuid.Nil, false
	}
	return id, true
}
