package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/QuanLionSoft/KonyaBusProject/internal/ingest"
	"github.com/QuanLionSoft/KonyaBusProject/internal/store"
)

// RidershipRepository defines the interface for ridership history reports
type RidershipRepository interface {
	GetDailyTotals(ctx context.Context, lineID string) ([]store.DailyTotal, error)
	TopLines(ctx context.Context, limit int) ([]store.DailyTotal, error)
}

// RidershipHandler serves boarding history reports from the reporting
// warehouse. Mounted only when a warehouse connection is configured.
type RidershipHandler struct {
	repo RidershipRepository
}

// NewRidershipHandler creates a new handler with the given repository
func NewRidershipHandler(repo RidershipRepository) *RidershipHandler {
	return &RidershipHandler{repo: repo}
}

// GetLineHistory handles GET /api/ridership/{lineId}
func (h *RidershipHandler) GetLineHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	lineID := ingest.CanonicalLineID(chi.URLParam(r, "lineId"))
	totals, err := h.repo.GetDailyTotals(ctx, lineID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve ridership history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"line_id": lineID,
		"days":    totals,
		"count":   len(totals),
	})
}

// GetTopLines handles GET /api/ridership/top?limit=10
func (h *RidershipHandler) GetTopLines(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "Invalid limit", nil)
			return
		}
		limit = n
	}

	totals, err := h.repo.TopLines(ctx, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve top lines", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lines": totals,
		"count": len(totals),
	})
}
