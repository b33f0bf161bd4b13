package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/QuanLionSoft/KonyaBusProject/internal/capacity"
	"github.com/QuanLionSoft/KonyaBusProject/internal/ingest"
	"github.com/QuanLionSoft/KonyaBusProject/internal/sim"
	"github.com/QuanLionSoft/KonyaBusProject/internal/store"
)

// SimulationRepository defines the data the simulation snapshot needs
type SimulationRepository interface {
	RouteForLine(ctx context.Context, lineID string, direction int) ([]store.RoutePoint, error)
	DeparturesForDay(ctx context.Context, lineID string, day capacity.DayType) ([]store.Departure, error)
}

// SimulationHandler handles HTTP requests for simulated bus positions
type SimulationHandler struct {
	repo SimulationRepository
}

// NewSimulationHandler creates a new handler with the given repository
func NewSimulationHandler(repo SimulationRepository) *SimulationHandler {
	return &SimulationHandler{repo: repo}
}

// SimulationResponse is the JSON response structure for GET /api/simulation/{lineId}
type SimulationResponse struct {
	LineID string    `json:"line_id"`
	Buses  []sim.Bus `json:"buses"`
	Count  int       `json:"count"`
	At     time.Time `json:"at"`
}

// GetSimulation handles GET /api/simulation/{lineId}
func (h *SimulationHandler) GetSimulation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	lineID := ingest.CanonicalLineID(chi.URLParam(r, "lineId"))
	now := time.Now()

	route, err := h.repo.RouteForLine(ctx, lineID, direction(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve route", err)
		return
	}
	deps, err := h.repo.DeparturesForDay(ctx, lineID, capacity.DayTypeFor(now))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve timetable", err)
		return
	}

	buses := sim.Snapshot(route, deps, now)
	writeJSON(w, http.StatusOK, SimulationResponse{
		LineID: lineID,
		Buses:  buses,
		Count:  len(buses),
		At:     now,
	})
}
