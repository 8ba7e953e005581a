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

	"github.com/pazarsync/backend/internal/domain/integration"
	"github.com/pazarsync/backend/internal/interfaces/http/dto"
)

type stubSyncService struct {
	submitFn     func(ctx context.Context, entityType integration.EntityType, scope integration.SyncScope) (*integration.SyncJob, error)
	jobFn        func(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error)
	jobLogsFn    func(ctx context.Context, id uuid.UUID) ([]integration.SyncLogEntry, error)
	recentJobsFn func(ctx context.Context, limit int) ([]integration.SyncJob, error)
	cancelFn     func(id uuid.UUID) bool
}

func (s *stubSyncService) Submit(ctx context.Context, entityType integration.EntityType, scope integration.SyncScope) (*integration.SyncJob, error) {
	return s.submitFn(ctx, entityType, scope)
}

func (s *stubSyncService) Job(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	return s.jobFn(ctx, id)
}

func (s *stubSyncService) JobLogs(ctx context.Context, id uuid.UUID) ([]integration.SyncLogEntry, error) {
	return s.jobLogsFn(ctx, id)
}

func (s *stubSyncService) RecentJobs(ctx context.Context, limit int) ([]integration.SyncJob, error) {
	return s.recentJobsFn(ctx, limit)
}

func (s *stubSyncService) CancelJob(id uuid.UUID) bool {
	return s.cancelFn(id)
}

func setupSyncRouter(svc SyncService) *gin.Engine {
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewSyncHandler(svc).RegisterRoutes(api)
	return engine
}

func pendingJob(entityType integration.EntityType) *integration.SyncJob {
	return &integration.SyncJob{
		ID:         uuid.New(),
		EntityType: entityType,
		Status:     integration.SyncJobStatusPending,
		CreatedAt:  time.Now(),
	}
}

func TestSyncHandlerSubmit(t *testing.T) {
	t.Run("accepts stock sync", func(t *testing.T) {
		var gotScope integration.SyncScope
		svc := &stubSyncService{
			submitFn: func(_ context.Context, entityType integration.EntityType, scope integration.SyncScope) (*integration.SyncJob, error) {
				assert.Equal(t, integration.EntityTypeStock, entityType)
				gotScope = scope
				return pendingJob(entityType), nil
			},
		}
		engine := setupSyncRouter(svc)

		intgID := uuid.New()
		body, _ := json.Marshal(SubmitSyncRequest{
			IntegrationIDs: []string{intgID.String()},
			Delta:          true,
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/sync/stock", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, gotScope.IntegrationIDs, 1)
		assert.Equal(t, intgID, gotScope.IntegrationIDs[0])
		assert.True(t, gotScope.Delta)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.NotEmpty(t, data["job_id"])
		assert.Equal(t, "stock", data["entity_type"])
		assert.Equal(t, "PENDING", data["status"])
	})

	t.Run("accepts empty body as full sync", func(t *testing.T) {
		svc := &stubSyncService{
			submitFn: func(_ context.Context, entityType integration.EntityType, scope integration.SyncScope) (*integration.SyncJob, error) {
				assert.Empty(t, scope.IntegrationIDs)
				assert.False(t, scope.Delta)
				return pendingJob(entityType), nil
			},
		}
		engine := setupSyncRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/sync/product", nil))

		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("unknown entity type", func(t *testing.T) {
		engine := setupSyncRouter(&stubSyncService{})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/sync/invoice", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidInput, resp.Error.Code)
	})

	t.Run("malformed integration id in scope", func(t *testing.T) {
		engine := setupSyncRouter(&stubSyncService{})

		body := []byte(`{"integration_ids":["not-a-uuid"]}`)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/sync/price", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSyncHandlerListJobs(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		gotLimit := 0
		svc := &stubSyncService{
			recentJobsFn: func(_ context.Context, limit int) ([]integration.SyncJob, error) {
				gotLimit = limit
				return []integration.SyncJob{*pendingJob(integration.EntityTypeOrder)}, nil
			},
		}
		engine := setupSyncRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/sync/jobs", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 20, gotLimit)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data, ok := resp.Data.([]interface{})
		require.True(t, ok)
		assert.Len(t, data, 1)
	})

	t.Run("explicit limit", func(t *testing.T) {
		gotLimit := 0
		svc := &stubSyncService{
			recentJobsFn: func(_ context.Context, limit int) ([]integration.SyncJob, error) {
				gotLimit = limit
				return nil, nil
			},
		}
		engine := setupSyncRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/sync/jobs?limit=5", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 5, gotLimit)
	})

	t.Run("limit out of range", func(t *testing.T) {
		engine := setupSyncRouter(&stubSyncService{})

		for _, raw := range []string{"0", "101", "abc"} {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/sync/jobs?limit="+raw, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		}
	})
}

func TestSyncHandlerGetJob(t *testing.T) {
	t.Run("job with entries", func(t *testing.T) {
		job := pendingJob(integration.EntityTypePrice)
		job.Status = integration.SyncJobStatusCompleted
		job.Total = 2
		job.Succeeded = 1
		job.Failed = 1
		started := time.Now().Add(-time.Minute)
		finished := time.Now()
		job.StartedAt = &started
		job.FinishedAt = &finished

		intgID := uuid.New()
		entityID := uuid.New()
		svc := &stubSyncService{
			jobFn: func(_ context.Context, id uuid.UUID) (*integration.SyncJob, error) {
				assert.Equal(t, job.ID, id)
				return job, nil
			},
			jobLogsFn: func(_ context.Context, _ uuid.UUID) ([]integration.SyncLogEntry, error) {
				return []integration.SyncLogEntry{
					{
						ID:               uuid.New(),
						JobID:            job.ID,
						IntegrationID:    intgID,
						InternalEntityID: entityID,
						EntityType:       integration.EntityTypePrice,
						Outcome:          integration.SyncOutcomeSuccess,
						Attempts:         1,
						Duration:         150 * time.Millisecond,
						CreatedAt:        time.Now(),
					},
					{
						ID:            uuid.New(),
						JobID:         job.ID,
						IntegrationID: intgID,
						EntityType:    integration.EntityTypePrice,
						Outcome:       integration.SyncOutcomeFailed,
						FailureKind:   integration.FailureRateLimited,
						Message:       "throttled",
						Attempts:      3,
						Duration:      2 * time.Second,
						CreatedAt:     time.Now(),
					},
				}, nil
			},
		}
		engine := setupSyncRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/sync/jobs/"+job.ID.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "COMPLETED", data["status"])
		assert.Equal(t, float64(2), data["total"])
		assert.NotEmpty(t, data["started_at"])
		assert.NotEmpty(t, data["finished_at"])

		entries, ok := data["entries"].([]interface{})
		require.True(t, ok)
		require.Len(t, entries, 2)

		first, ok := entries[0].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "SUCCESS", first["outcome"])
		assert.Equal(t, entityID.String(), first["internal_entity_id"])
		assert.Equal(t, float64(150), first["duration_ms"])

		second, ok := entries[1].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "FAILED", second["outcome"])
		assert.Equal(t, "RATE_LIMITED", second["failure_kind"])
		assert.Equal(t, "throttled", second["message"])
		assert.NotContains(t, second, "internal_entity_id")
	})

	t.Run("not found", func(t *testing.T) {
		svc := &stubSyncService{
			jobFn: func(_ context.Context, _ uuid.UUID) (*integration.SyncJob, error) {
				return nil, integration.ErrSyncJobNotFound
			},
		}
		engine := setupSyncRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/sync/jobs/"+uuid.NewString(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		engine := setupSyncRouter(&stubSyncService{})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/sync/jobs/nope", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSyncHandlerGetJobLogs(t *testing.T) {
	jobID := uuid.New()
	svc := &stubSyncService{
		jobLogsFn: func(_ context.Context, id uuid.UUID) ([]integration.SyncLogEntry, error) {
			assert.Equal(t, jobID, id)
			return []integration.SyncLogEntry{
				{
					ID:            uuid.New(),
					JobID:         jobID,
					IntegrationID: uuid.New(),
					EntityType:    integration.EntityTypeOrder,
					Outcome:       integration.SyncOutcomeSkipped,
					Message:       "unchanged since last push",
					CreatedAt:     time.Now(),
				},
			}, nil
		},
	}
	engine := setupSyncRouter(svc)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/sync/jobs/"+jobID.String()+"/logs", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)

	entry, ok := data[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "SKIPPED", entry["outcome"])
	assert.Equal(t, "unchanged since last push", entry["message"])
}

func TestSyncHandlerCancelJob(t *testing.T) {
	t.Run("cancellable", func(t *testing.T) {
		jobID := uuid.New()
		svc := &stubSyncService{
			cancelFn: func(id uuid.UUID) bool {
				assert.Equal(t, jobID, id)
				return true
			},
		}
		engine := setupSyncRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/sync/jobs/"+jobID.String()+"/cancel", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, data["cancelled"])
	})

	t.Run("already terminal", func(t *testing.T) {
		svc := &stubSyncService{
			cancelFn: func(_ uuid.UUID) bool { return false },
		}
		engine := setupSyncRouter(svc)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/sync/jobs/"+uuid.NewString()+"/cancel", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
