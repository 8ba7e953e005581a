package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// SyncService is the orchestration surface the handler drives.
type SyncService interface {
	Submit(ctx context.Context, entityType integration.EntityType, scope integration.SyncScope) (*integration.SyncJob, error)
	Job(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error)
	JobLogs(ctx context.Context, id uuid.UUID) ([]integration.SyncLogEntry, error)
	RecentJobs(ctx context.Context, limit int) ([]integration.SyncJob, error)
	CancelJob(id uuid.UUID) bool
}

// SyncHandler handles sync orchestration API endpoints
type SyncHandler struct {
	BaseHandler
	service SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/:entityType", h.Submit)
		sync.GET("/jobs", h.ListJobs)
		sync.GET("/jobs/:jobID", h.GetJob)
		sync.GET("/jobs/:jobID/logs", h.GetJobLogs)
		sync.POST("/jobs/:jobID/cancel", h.CancelJob)
	}
}

// SubmitSyncRequest scopes a sync run. Empty lists mean all.
type SubmitSyncRequest struct {
	IntegrationIDs    []string `json:"integration_ids"`
	InternalEntityIDs []string `json:"internal_entity_ids"`
	Delta             bool     `json:"delta"`
}

// SyncJobResponse represents a sync job in API responses
type SyncJobResponse struct {
	JobID      string  `json:"job_id"`
	EntityType string  `json:"entity_type"`
	Status     string  `json:"status"`
	Total      int     `json:"total"`
	Succeeded  int     `json:"succeeded"`
	Failed     int     `json:"failed"`
	Skipped    int     `json:"skipped"`
	Error      string  `json:"error,omitempty"`
	CreatedAt  string  `json:"created_at"`
	StartedAt  *string `json:"started_at,omitempty"`
	FinishedAt *string `json:"finished_at,omitempty"`
}

// SyncLogEntryResponse represents one (entity, integration) pair outcome
type SyncLogEntryResponse struct {
	IntegrationID    string `json:"integration_id"`
	InternalEntityID string `json:"internal_entity_id,omitempty"`
	EntityType       string `json:"entity_type"`
	Outcome          string `json:"outcome"`
	FailureKind      string `json:"failure_kind,omitempty"`
	Message          string `json:"message,omitempty"`
	Attempts         int    `json:"attempts"`
	DurationMs       int64  `json:"duration_ms"`
	CreatedAt        string `json:"created_at"`
}

// SyncJobDetailResponse is a job with its per-pair breakdown
type SyncJobDetailResponse struct {
	SyncJobResponse
	Entries []SyncLogEntryResponse `json:"entries"`
}

func toSyncJobResponse(job *integration.SyncJob) SyncJobResponse {
	resp := SyncJobResponse{
		JobID:      job.ID.String(),
		EntityType: job.EntityType.String(),
		Status:     job.Status.String(),
		Total:      job.Total,
		Succeeded:  job.Succeeded,
		Failed:     job.Failed,
		Skipped:    job.Skipped,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt.Format(timeFormat),
	}
	if job.StartedAt != nil {
		s := job.StartedAt.Format(timeFormat)
		resp.StartedAt = &s
	}
	if job.FinishedAt != nil {
		s := job.FinishedAt.Format(timeFormat)
		resp.FinishedAt = &s
	}
	return resp
}

func toSyncLogEntryResponse(entry *integration.SyncLogEntry) SyncLogEntryResponse {
	resp := SyncLogEntryResponse{
		IntegrationID: entry.IntegrationID.String(),
		EntityType:    entry.EntityType.String(),
		Outcome:       entry.Outcome.String(),
		FailureKind:   entry.FailureKind.String(),
		Message:       entry.Message,
		Attempts:      entry.Attempts,
		DurationMs:    entry.Duration.Milliseconds(),
		CreatedAt:     entry.CreatedAt.Format(timeFormat),
	}
	if entry.InternalEntityID != uuid.Nil {
		resp.InternalEntityID = entry.InternalEntityID.String()
	}
	return resp
}

// Submit accepts a sync run for background execution and returns 202 with
// the job ID
func (h *SyncHandler) Submit(c *gin.Context) {
	entityType := integration.EntityType(strings.ToLower(c.Param("entityType")))
	if !entityType.IsValid() {
		h.HandleError(c, integration.ErrInvalidEntityType)
		return
	}

	var req SubmitSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.BadRequest(c, err.Error())
		return
	}

	scope, err := h.parseScope(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	job, err := h.service.Submit(c.Request.Context(), entityType, scope)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, toSyncJobResponse(job))
}

// ListJobs returns recent sync jobs, newest first
func (h *SyncHandler) ListJobs(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			h.BadRequest(c, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	jobs, err := h.service.RecentJobs(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]SyncJobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, toSyncJobResponse(&jobs[i]))
	}
	h.Success(c, resp)
}

// GetJob returns one sync job with its per-pair breakdown
func (h *SyncHandler) GetJob(c *gin.Context) {
	id, ok := h.parseJobID(c)
	if !ok {
		return
	}

	job, err := h.service.Job(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logs, err := h.service.JobLogs(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	detail := SyncJobDetailResponse{
		SyncJobResponse: toSyncJobResponse(job),
		Entries:         make([]SyncLogEntryResponse, 0, len(logs)),
	}
	for i := range logs {
		detail.Entries = append(detail.Entries, toSyncLogEntryResponse(&logs[i]))
	}

	h.Success(c, detail)
}

// GetJobLogs returns the per-pair outcomes of one sync job
func (h *SyncHandler) GetJobLogs(c *gin.Context) {
	id, ok := h.parseJobID(c)
	if !ok {
		return
	}

	logs, err := h.service.JobLogs(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]SyncLogEntryResponse, 0, len(logs))
	for i := range logs {
		resp = append(resp, toSyncLogEntryResponse(&logs[i]))
	}
	h.Success(c, resp)
}

// CancelJob requests cancellation of a live job
func (h *SyncHandler) CancelJob(c *gin.Context) {
	id, ok := h.parseJobID(c)
	if !ok {
		return
	}

	if !h.service.CancelJob(id) {
		h.NotFound(c, "no cancellable job with this ID")
		return
	}

	h.Success(c, gin.H{"job_id": id.String(), "cancelled": true})
}

func (h *SyncHandler) parseScope(req SubmitSyncRequest) (integration.SyncScope, error) {
	scope := integration.SyncScope{Delta: req.Delta}

	for _, raw := range req.IntegrationIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return integration.SyncScope{}, err
		}
		scope.IntegrationIDs = append(scope.IntegrationIDs, id)
	}
	for _, raw := range req.InternalEntityIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return integration.SyncScope{}, err
		}
		scope.InternalEntityIDs = append(scope.InternalEntityIDs, id)
	}
	return scope, nil
}

func (h *SyncHandler) parseJobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("jobID"))
	if err != nil {
		h.BadRequest(c, "invalid job ID")
		return uuid.Nil, false
	}
	return id, true
}
