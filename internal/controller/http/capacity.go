package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/maxsupply/internal/domain/access"
	"github.com/vadim/maxsupply/internal/domain/capacity/entity"
	"github.com/vadim/maxsupply/internal/domain/capacity/policy"
	"github.com/vadim/maxsupply/internal/httpx/response"
)

// RoleHeader carries the caller's role on every request
const RoleHeader = "X-User-Role"

// CapacityPolicy defines the interface for dashboard operations
type CapacityPolicy interface {
	GetDashboard(ctx context.Context, in policy.GetDashboardInput) (*policy.Dashboard, error)
	Refresh(role access.Role) error
	UpdateJobStatus(ctx context.Context, in policy.UpdateJobStatusInput) (*entity.ProductionJob, error)
	RecordWorkCalculation(ctx context.Context, in policy.RecordWorkCalculationInput) (*entity.ProductionJob, error)
	ExportSnapshot(ctx context.Context, in policy.ExportSnapshotInput) (*policy.ExportSnapshotOutput, error)
}

// CapacityHandler handles HTTP requests for the capacity dashboard
type CapacityHandler struct {
	policy CapacityPolicy
	logger *slog.Logger
}

// NewCapacityHandler creates a new capacity handler
func NewCapacityHandler(p CapacityPolicy, logger *slog.Logger) *CapacityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CapacityHandler{policy: p, logger: logger}
}

// RegisterRoutes registers capacity routes
func (h *CapacityHandler) RegisterRoutes(r chi.Router) {
	r.Route("/capacity", func(r chi.Router) {
		r.Get("/statistics", h.GetStatistics())
		r.Post("/refresh", h.Refresh())
		r.Post("/snapshots", h.ExportSnapshot())

		r.Route("/jobs/{jobId}", func(r chi.Router) {
			r.Patch("/status", h.UpdateStatus())
			r.Post("/work-calculations", h.RecordWorkCalculation())
		})
	})
}

// GetStatistics handles GET /capacity/statistics
func (h *CapacityHandler) GetStatistics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r)
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		dash, err := h.policy.GetDashboard(r.Context(), policy.GetDashboardInput{
			Filter: filter,
			Role:   roleOf(r),
		})
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		response.OK(w, dash)
	}
}

// Refresh handles POST /capacity/refresh
func (h *CapacityHandler) Refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.policy.Refresh(roleOf(r)); err != nil {
			h.handleError(w, r, err)
			return
		}
		response.Accepted(w, map[string]string{"status": "scheduled"})
	}
}

// ExportSnapshot handles POST /capacity/snapshots
func (h *CapacityHandler) ExportSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r)
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		out, err := h.policy.ExportSnapshot(r.Context(), policy.ExportSnapshotInput{
			Filter: filter,
			Role:   roleOf(r),
		})
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		response.Created(w, out)
	}
}

// UpdateStatusRequest represents the request body for changing a job's status
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /capacity/jobs/{jobId}/status
func (h *CapacityHandler) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		status, err := entity.ParseJobStatus(req.Status)
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		job, err := h.policy.UpdateJobStatus(r.Context(), policy.UpdateJobStatusInput{
			JobID:  chi.URLParam(r, "jobId"),
			Status: status,
			Role:   roleOf(r),
		})
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		response.OK(w, job)
	}
}

// RecordWorkCalculationRequest represents the request body for recording work
type RecordWorkCalculationRequest struct {
	ProductionType string `json:"production_type"`
	Points         int    `json:"points"`
	TotalQuantity  int    `json:"total_quantity"`
}

// RecordWorkCalculation handles POST /capacity/jobs/{jobId}/work-calculations
func (h *CapacityHandler) RecordWorkCalculation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RecordWorkCalculationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		pt, err := entity.ParseProductionType(req.ProductionType)
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		job, err := h.policy.RecordWorkCalculation(r.Context(), policy.RecordWorkCalculationInput{
			JobID:          chi.URLParam(r, "jobId"),
			ProductionType: pt,
			Points:         req.Points,
			TotalQuantity:  req.TotalQuantity,
			Role:           roleOf(r),
		})
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		response.OK(w, job)
	}
}

func parseFilter(r *http.Request) (entity.JobFilter, error) {
	q := r.URL.Query()
	return entity.ParseJobFilter(q.Get("view"), q.Get("date"))
}

func roleOf(r *http.Request) access.Role {
	return access.ParseRole(r.Header.Get(RoleHeader))
}

// handleError maps domain errors to HTTP responses
func (h *CapacityHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrJobNotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, entity.ErrForbidden):
		response.Forbidden(w, r, err.Error())
	case errors.Is(err, entity.ErrInvalidStatus),
		errors.Is(err, entity.ErrInvalidProductionType),
		errors.Is(err, entity.ErrInvalidView),
		errors.Is(err, entity.ErrInvalidDate),
		errors.Is(err, entity.ErrNegativeQuantity):
		response.BadRequest(w, r, err.Error())
	case errors.Is(err, entity.ErrSnapshotStoreUnavailable):
		response.ServiceUnavailable(w, r, err.Error())
	default:
		h.logger.Error("capacity request failed", "path", r.URL.Path, "error", err)
		response.InternalError(w, r)
	}
}
