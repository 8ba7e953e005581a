package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("accepts payload within the cap", func(t *testing.T) {
		router := gin.New()
		router.Use(BodyLimit(1024))
		router.POST("/webhook/trendyol", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		body := bytes.NewReader([]byte(`{"orderNumber":"TY-1001","status":"Created"}`))
		req := httptest.NewRequest("POST", "/webhook/trendyol", body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects oversized delivery by Content-Length", func(t *testing.T) {
		router := gin.New()
		router.Use(BodyLimit(100))
		router.POST("/webhook/hepsiburada", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		body := bytes.NewReader([]byte(strings.Repeat("x", 200)))
		req := httptest.NewRequest("POST", "/webhook/hepsiburada", body)
		req.ContentLength = 200
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "REQUEST_TOO_LARGE")
	})

	t.Run("ignores bodyless requests", func(t *testing.T) {
		router := gin.New()
		router.Use(BodyLimit(10))
		router.GET("/api/v1/sync/jobs", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/api/v1/sync/jobs", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("caps chunked deliveries at read time", func(t *testing.T) {
		router := gin.New()
		router.Use(BodyLimit(50))
		router.POST("/webhook/n11", func(c *gin.Context) {
			if _, err := io.ReadAll(c.Request.Body); err != nil {
				c.String(http.StatusBadRequest, "payload too large")
				return
			}
			c.String(http.StatusOK, "ok")
		})

		// No Content-Length, the way a chunked delivery arrives.
		body := strings.NewReader(strings.Repeat("x", 100))
		req := httptest.NewRequest("POST", "/webhook/n11", body)
		req.ContentLength = -1
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
