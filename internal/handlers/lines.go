package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/QuanLionSoft/KonyaBusProject/internal/capacity"
	"github.com/QuanLionSoft/KonyaBusProject/internal/ingest"
	"github.com/QuanLionSoft/KonyaBusProject/internal/store"
)

// LineRepository defines the interface for line and schedule data operations
type LineRepository interface {
	ListLines(ctx context.Context) ([]store.Line, error)
	GetLine(ctx context.Context, lineID string) (*store.Line, error)
	StopsForLine(ctx context.Context, lineID string, direction int) ([]store.Stop, error)
	RouteForLine(ctx context.Context, lineID string, direction int) ([]store.RoutePoint, error)
	DeparturesForDay(ctx context.Context, lineID string, day capacity.DayType) ([]store.Departure, error)
	CreateExtraDeparture(ctx context.Context, lineID string, day capacity.DayType, departure, vehicleNo, reason string) (string, error)
	DeleteExtraDeparture(ctx context.Context, id string) error
}

// LineHandler handles HTTP requests for line, stop and timetable data
type LineHandler struct {
	repo LineRepository
}

// NewLineHandler creates a new handler with the given repository
func NewLineHandler(repo LineRepository) *LineHandler {
	return &LineHandler{repo: repo}
}

// ListLinesResponse is the JSON response structure for GET /api/lines
type ListLinesResponse struct {
	Lines []store.Line `json:"lines"`
	Count int          `json:"count"`
}

// ListLines handles GET /api/lines
func (h *LineHandler) ListLines(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	lines, err := h.repo.ListLines(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve lines", err)
		return
	}
	writeJSON(w, http.StatusOK, ListLinesResponse{Lines: lines, Count: len(lines)})
}

// GetLine handles GET /api/lines/{lineId}
func (h *LineHandler) GetLine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	lineID := ingest.CanonicalLineID(chi.URLParam(r, "lineId"))
	line, err := h.repo.GetLine(ctx, lineID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Line not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve line", err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

// GetLineStops handles GET /api/lines/{lineId}/stops
func (h *LineHandler) GetLineStops(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	lineID := ingest.CanonicalLineID(chi.URLParam(r, "lineId"))
	stops, err := h.repo.StopsForLine(ctx, lineID, direction(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve stops", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"line_id": lineID,
		"stops":   stops,
		"count":   len(stops),
	})
}

// GetLineRoute handles GET /api/lines/{lineId}/route
func (h *LineHandler) GetLineRoute(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	lineID := ingest.CanonicalLineID(chi.URLParam(r, "lineId"))
	points, err := h.repo.RouteForLine(ctx, lineID, direction(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve route", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"line_id": lineID,
		"points":  points,
		"count":   len(points),
	})
}

// GetTimetable handles GET /api/lines/{lineId}/timetable
// The day query parameter accepts H, C or P; default is today's day type.
func (h *LineHandler) GetTimetable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	lineID := ingest.CanonicalLineID(chi.URLParam(r, "lineId"))
	day, ok := dayType(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid day type, expected H, C or P", nil)
		return
	}

	deps, err := h.repo.DeparturesForDay(ctx, lineID, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve timetable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"line_id":    lineID,
		"day_type":   day,
		"departures": deps,
		"count":      len(deps),
	})
}

// CreateExtraDepartureRequest is the JSON body for POST /api/lines/{lineId}/departures
type CreateExtraDepartureRequest struct {
	DayType   string `json:"day_type"`
	Departure string `json:"departure"`
	VehicleNo string `json:"vehicle_no"`
	Reason    string `json:"reason"`
}

// CreateExtraDeparture handles POST /api/lines/{lineId}/departures
func (h *LineHandler) CreateExtraDeparture(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	lineID := ingest.CanonicalLineID(chi.URLParam(r, "lineId"))

	var req CreateExtraDepartureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	day := capacity.DayType(req.DayType)
	if day != capacity.DayWeekday && day != capacity.DaySaturday && day != capacity.DaySunday {
		writeError(w, http.StatusBadRequest, "Invalid day type, expected H, C or P", nil)
		return
	}
	if !validHHMM(req.Departure) {
		writeError(w, http.StatusBadRequest, "Invalid departure time, expected HH:MM", nil)
		return
	}
	if req.VehicleNo == "" {
		writeError(w, http.StatusBadRequest, "Vehicle number is required", nil)
		return
	}

	if _, err := h.repo.GetLine(ctx, lineID); errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Line not found", nil)
		return
	}

	id, err := h.repo.CreateExtraDeparture(ctx, lineID, day, req.Departure, req.VehicleNo, req.Reason)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create extra departure", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// DeleteExtraDeparture handles DELETE /api/departures/{id}
func (h *LineHandler) DeleteExtraDeparture(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.repo.DeleteExtraDeparture(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Extra departure not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete extra departure", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func direction(r *http.Request) int {
	if d, err := strconv.Atoi(r.URL.Query().Get("direction")); err == nil && d == 1 {
		return 1
	}
	return 0
}

func dayType(r *http.Request) (capacity.DayType, bool) {
	switch q := r.URL.Query().Get("day"); q {
	case "":
		return capacity.DayTypeFor(time.Now()), true
	case "H", "C", "P":
		return capacity.DayType(q), true
	default:
		return "", false
	}
}

func validHHMM(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	h, err1 := strconv.Atoi(s[:2])
	m, err2 := strconv.Atoi(s[3:])
	return err1 == nil && err2 == nil && h >= 0 && h <= 23 && m >= 0 && m <= 59
}
