package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/QuanLionSoft/KonyaBusProject/internal/traveltime"
)

// TravelEstimator defines the interface for travel time predictions
type TravelEstimator interface {
	PredictDuration(lineID, originStop, destStop string, hour int, weekday time.Weekday, recentDelays []float64) (int, error)
	Trained() bool
}

// TravelTimeMetrics is the instrumentation the travel time handler reports into.
type TravelTimeMetrics interface {
	TravelPredictionInc()
}

// TravelTimeHandler handles HTTP requests for stop-to-stop travel time estimates
type TravelTimeHandler struct {
	est     TravelEstimator
	metrics TravelTimeMetrics
}

// NewTravelTimeHandler creates a new handler with the given estimator
func NewTravelTimeHandler(est TravelEstimator, m TravelTimeMetrics) *TravelTimeHandler {
	return &TravelTimeHandler{est: est, metrics: m}
}

// TravelTimeResponse is the JSON response structure for GET /api/traveltime
type TravelTimeResponse struct {
	LineID      string `json:"line_id"`
	OriginStop  string `json:"origin_stop"`
	DestStop    string `json:"dest_stop"`
	Hour        int    `json:"hour"`
	Weekday     int    `json:"weekday"`
	DurationSec int    `json:"duration_sec"`
}

// GetTravelTime handles GET /api/traveltime?line=..&origin=..&dest=..&hour=..&weekday=..
// Hour and weekday default to the current time when omitted.
func (h *TravelTimeHandler) GetTravelTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lineID := q.Get("line")
	origin := q.Get("origin")
	dest := q.Get("dest")
	if lineID == "" || origin == "" || dest == "" {
		writeError(w, http.StatusBadRequest, "line, origin and dest query parameters are required", nil)
		return
	}

	now := time.Now()
	hour := now.Hour()
	if v := q.Get("hour"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 23 {
			writeError(w, http.StatusBadRequest, "Invalid hour", nil)
			return
		}
		hour = n
	}
	weekday := now.Weekday()
	if v := q.Get("weekday"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 6 {
			writeError(w, http.StatusBadRequest, "Invalid weekday, expected 0 (Sunday) to 6", nil)
			return
		}
		weekday = time.Weekday(n)
	}

	sec, err := h.est.PredictDuration(lineID, origin, dest, hour, weekday, nil)
	var unseen *traveltime.UnseenIdentifierError
	if errors.As(err, &unseen) {
		writeError(w, http.StatusUnprocessableEntity, "Identifier unknown to the travel time model, retrain required", err)
		return
	}
	if errors.Is(err, traveltime.ErrNotTrained) {
		writeError(w, http.StatusServiceUnavailable, "Travel time model not trained yet", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to estimate travel time", err)
		return
	}

	if h.metrics != nil {
		h.metrics.TravelPredictionInc()
	}
	writeJSON(w, http.StatusOK, TravelTimeResponse{
		LineID:      lineID,
		OriginStop:  origin,
		DestStop:    dest,
		Hour:        hour,
		Weekday:     int(weekday),
		DurationSec: sec,
	})
}
