package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/maxsupply/internal/domain/access"
	"github.com/vadim/maxsupply/internal/domain/worksheet/entity"
	"github.com/vadim/maxsupply/internal/domain/worksheet/policy"
	"github.com/vadim/maxsupply/internal/httpx/response"
)

// WorksheetPolicy defines the interface for worksheet size operations
type WorksheetPolicy interface {
	GetSizes(ctx context.Context, worksheetID string, role access.Role) (*policy.SizesView, error)
	AvailableSizes(ctx context.Context, worksheetID string) ([]string, error)
	UpdateQuantity(ctx context.Context, in policy.UpdateQuantityInput) (*policy.SizesView, error)
	SyncFromOrder(ctx context.Context, worksheetID string, role access.Role) (*policy.SizesView, error)
}

// WorksheetHandler handles HTTP requests for worksheet sizes
type WorksheetHandler struct {
	policy WorksheetPolicy
	logger *slog.Logger
}

// NewWorksheetHandler creates a new worksheet handler
func NewWorksheetHandler(p WorksheetPolicy, logger *slog.Logger) *WorksheetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorksheetHandler{policy: p, logger: logger}
}

// RegisterRoutes registers worksheet routes
func (h *WorksheetHandler) RegisterRoutes(r chi.Router) {
	r.Route("/worksheets/{worksheetId}/sizes", func(r chi.Router) {
		r.Get("/", h.GetSizes())
		r.Put("/", h.UpdateQuantity())
		r.Post("/sync", h.SyncFromOrder())
		r.Get("/available", h.AvailableSizes())
	})
}

// GetSizes handles GET /worksheets/{worksheetId}/sizes
func (h *WorksheetHandler) GetSizes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := h.policy.GetSizes(r.Context(), chi.URLParam(r, "worksheetId"), roleOf(r))
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		response.OK(w, out)
	}
}

// AvailableSizes handles GET /worksheets/{worksheetId}/sizes/available
func (h *WorksheetHandler) AvailableSizes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sizes, err := h.policy.AvailableSizes(r.Context(), chi.URLParam(r, "worksheetId"))
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		if sizes == nil {
			sizes = []string{}
		}
		response.OK(w, map[string]interface{}{"sizes": sizes})
	}
}

// UpdateQuantityRequest represents the request body for editing one size.
// Quantity may be a number, a numeric string or an empty string.
type UpdateQuantityRequest struct {
	PatternType string             `json:"pattern_type"`
	SizeName    string             `json:"size_name"`
	Quantity    entity.RawQuantity `json:"quantity"`
}

// UpdateQuantity handles PUT /worksheets/{worksheetId}/sizes
func (h *WorksheetHandler) UpdateQuantity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateQuantityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, r, "invalid JSON")
			return
		}

		pt, err := entity.ParsePatternType(req.PatternType)
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		out, err := h.policy.UpdateQuantity(r.Context(), policy.UpdateQuantityInput{
			WorksheetID: chi.URLParam(r, "worksheetId"),
			PatternType: pt,
			SizeName:    req.SizeName,
			Quantity:    req.Quantity,
			Role:        roleOf(r),
		})
		if err != nil {
			h.handleError(w, r, err)
			return
		}

		response.OK(w, out)
	}
}

// SyncFromOrder handles POST /worksheets/{worksheetId}/sizes/sync
func (h *WorksheetHandler) SyncFromOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := h.policy.SyncFromOrder(r.Context(), chi.URLParam(r, "worksheetId"), roleOf(r))
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		response.OK(w, out)
	}
}

// handleError maps domain errors to HTTP responses
func (h *WorksheetHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrWorksheetNotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, entity.ErrForbidden):
		response.Forbidden(w, r, err.Error())
	case errors.Is(err, entity.ErrInvalidPatternType),
		errors.Is(err, entity.ErrPartitionMismatch),
		errors.Is(err, entity.ErrEmptySizeName),
		errors.Is(err, entity.ErrNoSourceOrder):
		response.BadRequest(w, r, err.Error())
	default:
		h.logger.Error("worksheet request failed", "path", r.URL.Path, "error", err)
		response.InternalError(w, r)
	}
}
