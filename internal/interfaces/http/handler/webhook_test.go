package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pazarsync/backend/internal/domain/integration"
	"github.com/pazarsync/backend/internal/interfaces/http/dto"
)

type stubWebhookReceiver struct {
	receiveFn func(ctx context.Context, platform integration.PlatformCode, payload []byte, signature string) error
}

func (s *stubWebhookReceiver) Receive(ctx context.Context, platform integration.PlatformCode, payload []byte, signature string) error {
	return s.receiveFn(ctx, platform, payload, signature)
}

func setupWebhookRouter(receiver WebhookReceiver) *gin.Engine {
	engine := gin.New()
	NewWebhookHandler(receiver).RegisterRoutes(&engine.RouterGroup)
	return engine
}

func TestWebhookHandlerReceive(t *testing.T) {
	t.Run("acknowledges valid event", func(t *testing.T) {
		var gotPlatform integration.PlatformCode
		var gotPayload []byte
		var gotSignature string
		receiver := &stubWebhookReceiver{
			receiveFn: func(_ context.Context, platform integration.PlatformCode, payload []byte, signature string) error {
				gotPlatform = platform
				gotPayload = payload
				gotSignature = signature
				return nil
			},
		}
		engine := setupWebhookRouter(receiver)

		payload := []byte(`{"orderNumber":"TY-10042","status":"Created"}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/webhook/trendyol", bytes.NewReader(payload))
		req.Header.Set(SignatureHeader, "sha256=abcdef")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, integration.PlatformCodeTrendyol, gotPlatform)
		assert.Equal(t, payload, gotPayload)
		assert.Equal(t, "sha256=abcdef", gotSignature)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
	})

	t.Run("bad signature yields 401", func(t *testing.T) {
		receiver := &stubWebhookReceiver{
			receiveFn: func(_ context.Context, _ integration.PlatformCode, _ []byte, _ string) error {
				return integration.ErrWebhookBadSignature
			},
		}
		engine := setupWebhookRouter(receiver)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/webhook/trendyol", bytes.NewReader([]byte(`{}`)))
		req.Header.Set(SignatureHeader, "sha256=wrong")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeBadSignature, resp.Error.Code)
	})

	t.Run("unknown platform", func(t *testing.T) {
		engine := setupWebhookRouter(&stubWebhookReceiver{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/webhook/etsy", bytes.NewReader([]byte(`{}`)))
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidInput, resp.Error.Code)
	})

	t.Run("no configured integration yields 404", func(t *testing.T) {
		receiver := &stubWebhookReceiver{
			receiveFn: func(_ context.Context, _ integration.PlatformCode, _ []byte, _ string) error {
				return integration.ErrIntegrationNotFound
			},
		}
		engine := setupWebhookRouter(receiver)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/webhook/n11", bytes.NewReader([]byte(`{}`)))
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("disabled integration yields 422", func(t *testing.T) {
		receiver := &stubWebhookReceiver{
			receiveFn: func(_ context.Context, _ integration.PlatformCode, _ []byte, _ string) error {
				return integration.ErrIntegrationDisabled
			},
		}
		engine := setupWebhookRouter(receiver)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/webhook/hepsiburada", bytes.NewReader([]byte(`{}`)))
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("empty payload rejected", func(t *testing.T) {
		engine := setupWebhookRouter(&stubWebhookReceiver{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/webhook/trendyol", nil)
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate event still acknowledged", func(t *testing.T) {
		receiver := &stubWebhookReceiver{
			receiveFn: func(_ context.Context, _ integration.PlatformCode, _ []byte, _ string) error {
				return nil
			},
		}
		engine := setupWebhookRouter(receiver)

		payload := []byte(`{"orderNumber":"TY-10042"}`)
		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/webhook/trendyol", bytes.NewReader(payload))
			req.Header.Set(SignatureHeader, "sha256=abcdef")
			engine.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})
}
