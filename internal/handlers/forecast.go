package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/QuanLionSoft/KonyaBusProject/internal/forecast"
	"github.com/QuanLionSoft/KonyaBusProject/internal/ingest"
)

// Forecaster defines the interface for demand forecasting operations
type Forecaster interface {
	Predict(lineID string, horizonHours int, agg forecast.Aggregation) ([]forecast.Point, error)
	State(lineID string) forecast.State
	Train(lineID string) (*forecast.Model, error)
}

// ForecastMetrics is the instrumentation the forecast handler reports into.
type ForecastMetrics interface {
	ForecastServedInc()
}

// ForecastHandler handles HTTP requests for passenger demand forecasts
type ForecastHandler struct {
	svc     Forecaster
	metrics ForecastMetrics
}

// NewForecastHandler creates a new handler with the given service
func NewForecastHandler(svc Forecaster, m ForecastMetrics) *ForecastHandler {
	return &ForecastHandler{svc: svc, metrics: m}
}

// ForecastResponse is the JSON response structure for GET /api/forecast/{lineId}
type ForecastResponse struct {
	LineID      string           `json:"line_id"`
	Period      string           `json:"period"`
	State       forecast.State   `json:"state"`
	Points      []forecast.Point `json:"points"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// GetForecast handles GET /api/forecast/{lineId}?period=daily|weekly|monthly|yearly
// A line with no trained model is trained on first request.
func (h *ForecastHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	lineID := ingest.CanonicalLineID(chi.URLParam(r, "lineId"))

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "daily"
	}
	switch period {
	case "daily", "weekly", "monthly", "yearly":
	default:
		writeError(w, http.StatusBadRequest, "Invalid period, expected daily, weekly, monthly or yearly", nil)
		return
	}
	hours, agg := forecast.PeriodSettings(period)

	points, err := h.svc.Predict(lineID, hours, agg)
	if errors.Is(err, forecast.ErrInsufficientData) {
		writeError(w, http.StatusUnprocessableEntity, "Not enough boarding history to train a model for this line", nil)
		return
	}
	if errors.Is(err, forecast.ErrModelUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "Forecast model unavailable", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute forecast", err)
		return
	}

	if h.metrics != nil {
		h.metrics.ForecastServedInc()
	}
	writeJSON(w, http.StatusOK, ForecastResponse{
		LineID:      lineID,
		Period:      period,
		State:       h.svc.State(lineID),
		Points:      points,
		GeneratedAt: time.Now().UTC(),
	})
}

// RetrainForecast handles POST /api/forecast/{lineId}/retrain
func (h *ForecastHandler) RetrainForecast(w http.ResponseWriter, r *http.Request) {
	lineID := ingest.CanonicalLineID(chi.URLParam(r, "lineId"))

	model, err := h.svc.Train(lineID)
	if errors.Is(err, forecast.ErrInsufficientData) {
		writeError(w, http.StatusUnprocessableEntity, "Not enough boarding history to train a model for this line", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Training failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"line_id":    lineID,
		"trained_at": model.TrainedAt,
		"series_len": model.SeriesLen,
	})
}
