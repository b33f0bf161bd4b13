package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/QuanLionSoft/KonyaBusProject/internal/forecast"
)

type stubForecaster struct {
	points []forecast.Point
	err    error

	lastLine  string
	lastHours int
	lastAgg   forecast.Aggregation
}

func (s *stubForecaster) Predict(lineID string, hours int, agg forecast.Aggregation) ([]forecast.Point, error) {
	s.lastLine, s.lastHours, s.lastAgg = lineID, hours, agg
	return s.points, s.err
}

func (s *stubForecaster) State(lineID string) forecast.State { return forecast.StateTrained }

func (s *stubForecaster) Train(lineID string) (*forecast.Model, error) {
	return &forecast.Model{TrainedAt: time.Now()}, s.err
}

func forecastRequest(h *ForecastHandler, url string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/api/forecast/{lineId}", h.GetForecast)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestGetForecastPeriodMapping(t *testing.T) {
	stub := &stubForecaster{points: []forecast.Point{{Value: 1}}}
	h := NewForecastHandler(stub, nil)

	cases := []struct {
		period string
		hours  int
		agg    forecast.Aggregation
	}{
		{"", 24, forecast.AggHour},
		{"daily", 24, forecast.AggHour},
		{"weekly", 168, forecast.AggDay},
		{"yearly", 8760, forecast.AggMonth},
	}
	for _, tc := range cases {
		url := "/api/forecast/4"
		if tc.period != "" {
			url += "?period=" + tc.period
		}
		rec := forecastRequest(h, url)
		if rec.Code != http.StatusOK {
			t.Errorf("period %q: status %d", tc.period, rec.Code)
		}
		if stub.lastHours != tc.hours || stub.lastAgg != tc.agg {
			t.Errorf("period %q mapped to (%d, %s), want (%d, %s)",
				tc.period, stub.lastHours, stub.lastAgg, tc.hours, tc.agg)
		}
	}

	rec := forecastRequest(h, "/api/forecast/4?period=hourly")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown period status = %d, want 400", rec.Code)
	}
}

// TestGetForecastCanonicalizesLineID: the URL may carry a float-artifact
// line id; the service must see the canonical form.
func TestGetForecastCanonicalizesLineID(t *testing.T) {
	stub := &stubForecaster{points: []forecast.Point{}}
	h := NewForecastHandler(stub, nil)

	forecastRequest(h, "/api/forecast/04.00")
	if stub.lastLine != "4" {
		t.Errorf("service saw line %q, want canonical 4", stub.lastLine)
	}
}

// TestGetForecastErrorStatuses: missing data and an unavailable model
// are different client situations and must map to different statuses.
func TestGetForecastErrorStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{forecast.ErrInsufficientData, http.StatusUnprocessableEntity},
		{forecast.ErrModelUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		h := NewForecastHandler(&stubForecaster{err: tc.err}, nil)
		rec := forecastRequest(h, "/api/forecast/4")
		if rec.Code != tc.want {
			t.Errorf("error %v mapped to status %d, want %d", tc.err, rec.Code, tc.want)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error == "" {
			t.Errorf("error %v produced unusable body %q", tc.err, rec.Body.String())
		}
	}
}
