package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/QuanLionSoft/KonyaBusProject/internal/capacity"
	"github.com/QuanLionSoft/KonyaBusProject/internal/ingest"
)

// CapacityAnalyzer defines the interface for capacity analysis
type CapacityAnalyzer interface {
	Analyze(lineID string, day capacity.DayType) (*capacity.Report, error)
}

// CapacityHandler handles HTTP requests for capacity analysis
type CapacityHandler struct {
	analyzer CapacityAnalyzer
}

// NewCapacityHandler creates a new handler with the given analyzer
func NewCapacityHandler(a CapacityAnalyzer) *CapacityHandler {
	return &CapacityHandler{analyzer: a}
}

// GetCapacity handles GET /api/capacity/{lineId}?day=H|C|P
func (h *CapacityHandler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	lineID := ingest.CanonicalLineID(chi.URLParam(r, "lineId"))
	day, ok := dayType(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid day type, expected H, C or P", nil)
		return
	}

	report, err := h.analyzer.Analyze(lineID, day)
	if errors.Is(err, capacity.ErrNoSchedule) {
		writeError(w, http.StatusNotFound, "No timetable for this line", nil)
		return
	}
	if errors.Is(err, ingest.ErrNoData) {
		writeError(w, http.StatusUnprocessableEntity, "No boarding history for this line", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to analyze capacity", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"report":       report,
		"generated_at": time.Now().UTC(),
	})
}
