package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intgapp "github.com/pazarsync/backend/internal/application/integration"
	"github.com/pazarsync/backend/internal/domain/integration"
	"github.com/pazarsync/backend/internal/interfaces/http/dto"
)

// stubIntegrationService lets each test script the service responses.
type stubIntegrationService struct {
	createFn       func(ctx context.Context, platform integration.PlatformCode, category integration.Category, name string) (*integration.Integration, error)
	getFn          func(ctx context.Context, id uuid.UUID) (*integration.Integration, error)
	listFn         func(ctx context.Context, filter integration.IntegrationFilter) ([]integration.Integration, error)
	deleteFn       func(ctx context.Context, id uuid.UUID) error
	enableFn       func(ctx context.Context, id uuid.UUID) (*integration.Integration, error)
	disableFn      func(ctx context.Context, id uuid.UUID) (*integration.Integration, error)
	configureFn    func(ctx context.Context, id uuid.UUID, fields map[string]string, sandbox bool) (*integration.Integration, error)
	healthFn       func(ctx context.Context, id uuid.UUID) (*intgapp.HealthReport, error)
	testConnFn     func(ctx context.Context, id uuid.UUID) (*intgapp.ConnectionTestResult, error)
	lastListFilter integration.IntegrationFilter
}

func (s *stubIntegrationService) Create(ctx context.Context, platform integration.PlatformCode, category integration.Category, name string) (*integration.Integration, error) {
	return s.createFn(ctx, platform, category, name)
}

func (s *stubIntegrationService) Get(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	return s.getFn(ctx, id)
}

func (s *stubIntegrationService) List(ctx context.Context, filter integration.IntegrationFilter) ([]integration.Integration, error) {
	s.lastListFilter = filter
	return s.listFn(ctx, filter)
}

func (s *stubIntegrationService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

func (s *stubIntegrationService) Enable(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	return s.enableFn(ctx, id)
}

func (s *stubIntegrationService) Disable(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	return s.disableFn(ctx, id)
}

func (s *stubIntegrationService) ConfigureCredentials(ctx context.Context, id uuid.UUID, fields map[string]string, sandbox bool) (*integration.Integration, error) {
	return s.configureFn(ctx, id, fields, sandbox)
}

func (s *stubIntegrationService) Health(ctx context.Context, id uuid.UUID) (*intgapp.HealthReport, error) {
	return s.healthFn(ctx, id)
}

func (s *stubIntegrationService) TestConnection(ctx context.Context, id uuid.UUID) (*intgapp.ConnectionTestResult, error) {
	return s.testConnFn(ctx, id)
}

func setupIntegrationRouter(svc IntegrationService) *gin.Engine {
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewIntegrationHandler(svc).RegisterRoutes(api)
	return engine
}

func testIntegration(platform integration.PlatformCode, category integration.Category) *integration.Integration {
	now := time.Now()
	return &integration.Integration{
		ID:        uuid.New(),
		Platform:  platform,
		Category:  category,
		Name:      "Test Store",
		Health:    integration.HealthStateUnknown,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestIntegrationHandlerCreate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &stubIntegrationService{
			createFn: func(_ context.Context, platform integration.PlatformCode, category integration.Category, name string) (*integration.Integration, error) {
				assert.Equal(t, integration.PlatformCodeTrendyol, platform)
				assert.Equal(t, integration.CategoryMarketplace, category)
				assert.Equal(t, "My Trendyol", name)
				intg := testIntegration(platform, category)
				intg.Name = name
				return intg, nil
			},
		}
		engine := setupIntegrationRouter(svc)

		body, _ := json.Marshal(CreateIntegrationRequest{
			Platform: "trendyol",
			Category: "marketplace",
			Name:     "My Trendyol",
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/integrations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "TRENDYOL", data["platform"])
		assert.Equal(t, "marketplace", data["category"])
		assert.Equal(t, "My Trendyol", data["name"])
		assert.Equal(t, false, data["enabled"])
		assert.Equal(t, false, data["has_credentials"])
	})

	t.Run("unknown platform", func(t *testing.T) {
		engine := setupIntegrationRouter(&stubIntegrationService{})

		body := []byte(`{"platform":"etsy","category":"marketplace"}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/integrations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidInput, resp.Error.Code)
	})

	t.Run("invalid category rejected by binding", func(t *testing.T) {
		engine := setupIntegrationRouter(&stubIntegrationService{})

		body := []byte(`{"platform":"trendyol","category":"wholesale"}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/integrations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate platform", func(t *testing.T) {
		svc := &stubIntegrationService{
			createFn: func(_ context.Context, _ integration.PlatformCode, _ integration.Category, _ string) (*integration.Integration, error) {
				return nil, integration.ErrIntegrationAlreadyExists
			},
		}
		engine := setupIntegrationRouter(svc)

		body := []byte(`{"platform":"trendyol","category":"marketplace"}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/integrations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestIntegrationHandlerList(t *testing.T) {
	t.Run("no filters", func(t *testing.T) {
		svc := &stubIntegrationService{
			listFn: func(_ context.Context, _ integration.IntegrationFilter) ([]integration.Integration, error) {
				return []integration.Integration{
					*testIntegration(integration.PlatformCodeTrendyol, integration.CategoryMarketplace),
					*testIntegration(integration.PlatformCodeIyzico, integration.CategoryPayment),
				}, nil
			},
		}
		engine := setupIntegrationRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/integrations", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data, ok := resp.Data.([]interface{})
		require.True(t, ok)
		assert.Len(t, data, 2)
		assert.Nil(t, svc.lastListFilter.Platform)
		assert.Nil(t, svc.lastListFilter.Enabled)
	})

	t.Run("platform and enabled filters", func(t *testing.T) {
		svc := &stubIntegrationService{
			listFn: func(_ context.Context, _ integration.IntegrationFilter) ([]integration.Integration, error) {
				return nil, nil
			},
		}
		engine := setupIntegrationRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/integrations?platform=n11&enabled=true", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, svc.lastListFilter.Platform)
		assert.Equal(t, integration.PlatformCodeN11, *svc.lastListFilter.Platform)
		require.NotNil(t, svc.lastListFilter.Enabled)
		assert.True(t, *svc.lastListFilter.Enabled)
	})

	t.Run("invalid category filter", func(t *testing.T) {
		engine := setupIntegrationRouter(&stubIntegrationService{})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/integrations?category=wholesale", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestIntegrationHandlerGet(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		intg := testIntegration(integration.PlatformCodeHepsiburada, integration.CategoryMarketplace)
		svc := &stubIntegrationService{
			getFn: func(_ context.Context, id uuid.UUID) (*integration.Integration, error) {
				assert.Equal(t, intg.ID, id)
				return intg, nil
			},
		}
		engine := setupIntegrationRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/integrations/"+intg.ID.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, intg.ID.String(), data["id"])
		assert.Equal(t, "HEPSIBURADA", data["platform"])
		assert.Equal(t, "UNKNOWN", data["health"])
	})

	t.Run("not found", func(t *testing.T) {
		svc := &stubIntegrationService{
			getFn: func(_ context.Context, _ uuid.UUID) (*integration.Integration, error) {
				return nil, integration.ErrIntegrationNotFound
			},
		}
		engine := setupIntegrationRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/integrations/"+uuid.NewString(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		engine := setupIntegrationRouter(&stubIntegrationService{})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/integrations/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestIntegrationHandlerDelete(t *testing.T) {
	deleted := uuid.Nil
	svc := &stubIntegrationService{
		deleteFn: func(_ context.Context, id uuid.UUID) error {
			deleted = id
			return nil
		},
	}
	engine := setupIntegrationRouter(svc)

	id := uuid.New()
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/integrations/"+id.String(), nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, id, deleted)
	assert.Empty(t, w.Body.Bytes())
}

func TestIntegrationHandlerConfigureCredentials(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		intg := testIntegration(integration.PlatformCodeTrendyol, integration.CategoryMarketplace)
		intg.HasCredentials = true
		intg.Sandbox = true

		svc := &stubIntegrationService{
			configureFn: func(_ context.Context, id uuid.UUID, fields map[string]string, sandbox bool) (*integration.Integration, error) {
				assert.Equal(t, intg.ID, id)
				assert.Equal(t, "key-123", fields["api_key"])
				assert.True(t, sandbox)
				return intg, nil
			},
		}
		engine := setupIntegrationRouter(svc)

		body := []byte(`{"fields":{"api_key":"key-123","api_secret":"sec-456","supplier_id":"9001"},"sandbox":true}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/api/v1/integrations/"+intg.ID.String()+"/credentials", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, data["has_credentials"])
		assert.Equal(t, true, data["sandbox"])
		assert.NotContains(t, w.Body.String(), "key-123")
		assert.NotContains(t, w.Body.String(), "sec-456")
	})

	t.Run("missing required field", func(t *testing.T) {
		svc := &stubIntegrationService{
			configureFn: func(_ context.Context, _ uuid.UUID, _ map[string]string, _ bool) (*integration.Integration, error) {
				return nil, integration.ErrCredentialFieldMissing
			},
		}
		engine := setupIntegrationRouter(svc)

		body := []byte(`{"fields":{"api_key":"key-123"}}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/api/v1/integrations/"+uuid.NewString()+"/credentials", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeCredentialsInvalid, resp.Error.Code)
	})

	t.Run("fields required", func(t *testing.T) {
		engine := setupIntegrationRouter(&stubIntegrationService{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/api/v1/integrations/"+uuid.NewString()+"/credentials", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestIntegrationHandlerEnableDisable(t *testing.T) {
	t.Run("enable", func(t *testing.T) {
		intg := testIntegration(integration.PlatformCodeN11, integration.CategoryMarketplace)
		intg.Enabled = true
		svc := &stubIntegrationService{
			enableFn: func(_ context.Context, _ uuid.UUID) (*integration.Integration, error) {
				return intg, nil
			},
		}
		engine := setupIntegrationRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/integrations/"+intg.ID.String()+"/enable", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, data["enabled"])
	})

	t.Run("enable without credentials", func(t *testing.T) {
		svc := &stubIntegrationService{
			enableFn: func(_ context.Context, _ uuid.UUID) (*integration.Integration, error) {
				return nil, integration.ErrCredentialsNotFound
			},
		}
		engine := setupIntegrationRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/integrations/"+uuid.NewString()+"/enable", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("disable", func(t *testing.T) {
		intg := testIntegration(integration.PlatformCodeN11, integration.CategoryMarketplace)
		svc := &stubIntegrationService{
			disableFn: func(_ context.Context, _ uuid.UUID) (*integration.Integration, error) {
				return intg, nil
			},
		}
		engine := setupIntegrationRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/integrations/"+intg.ID.String()+"/disable", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, false, data["enabled"])
	})
}

func TestIntegrationHandlerHealth(t *testing.T) {
	id := uuid.New()
	svc := &stubIntegrationService{
		healthFn: func(_ context.Context, got uuid.UUID) (*intgapp.HealthReport, error) {
			assert.Equal(t, id, got)
			return &intgapp.HealthReport{
				IntegrationID:  id,
				Platform:       integration.PlatformCodeTrendyol,
				Health:         integration.HealthStateHealthy,
				BreakerState:   integration.BreakerClosed,
				RecentOutcomes: 40,
				RecentFailures: 1,
			}, nil
		},
	}
	engine := setupIntegrationRouter(svc)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/integrations/"+id.String()+"/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "HEALTHY", data["health"])
	assert.Equal(t, float64(40), data["recent_outcomes"])
}

func TestIntegrationHandlerTestConnection(t *testing.T) {
	t.Run("probe succeeds", func(t *testing.T) {
		id := uuid.New()
		svc := &stubIntegrationService{
			testConnFn: func(_ context.Context, _ uuid.UUID) (*intgapp.ConnectionTestResult, error) {
				return &intgapp.ConnectionTestResult{
					IntegrationID: id,
					Platform:      integration.PlatformCodeIyzico,
					OK:            true,
				}, nil
			},
		}
		engine := setupIntegrationRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/integrations/"+id.String()+"/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, data["ok"])
	})

	t.Run("auth failure surfaces as 401", func(t *testing.T) {
		svc := &stubIntegrationService{
			testConnFn: func(_ context.Context, _ uuid.UUID) (*intgapp.ConnectionTestResult, error) {
				return nil, integration.NewFailure(integration.FailureAuth, integration.PlatformCodeIyzico, "invalid api key")
			},
		}
		engine := setupIntegrationRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/integrations/"+uuid.NewString()+"/test", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
