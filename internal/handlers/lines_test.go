package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/QuanLionSoft/KonyaBusProject/internal/capacity"
	"github.com/QuanLionSoft/KonyaBusProject/internal/store"
)

type stubLineRepo struct {
	lines map[string]store.Line

	lastVehicle string
	lastReason  string
	created     int
}

func (s *stubLineRepo) ListLines(ctx context.Context) ([]store.Line, error) { return nil, nil }

func (s *stubLineRepo) GetLine(ctx context.Context, lineID string) (*store.Line, error) {
	if l, ok := s.lines[lineID]; ok {
		return &l, nil
	}
	return nil, store.ErrNotFound
}

func (s *stubLineRepo) StopsForLine(ctx context.Context, lineID string, direction int) ([]store.Stop, error) {
	return nil, nil
}

func (s *stubLineRepo) RouteForLine(ctx context.Context, lineID string, direction int) ([]store.RoutePoint, error) {
	return nil, nil
}

func (s *stubLineRepo) DeparturesForDay(ctx context.Context, lineID string, day capacity.DayType) ([]store.Departure, error) {
	return nil, nil
}

func (s *stubLineRepo) CreateExtraDeparture(ctx context.Context, lineID string, day capacity.DayType, departure, vehicleNo, reason string) (string, error) {
	s.created++
	s.lastVehicle = vehicleNo
	s.lastReason = reason
	return "id-1", nil
}

func (s *stubLineRepo) DeleteExtraDeparture(ctx context.Context, id string) error { return nil }

func postDeparture(h *LineHandler, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/api/lines/{lineId}/departures", h.CreateExtraDeparture)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/lines/4/departures", strings.NewReader(body))
	r.ServeHTTP(rec, req)
	return rec
}

// TestCreateExtraDeparture: a valid request records the departure with
// its vehicle; the vehicle number is mandatory.
func TestCreateExtraDeparture(t *testing.T) {
	repo := &stubLineRepo{lines: map[string]store.Line{"4": {LineID: "4"}}}
	h := NewLineHandler(repo)

	rec := postDeparture(h, `{"day_type":"H","departure":"08:30","vehicle_no":"42 ABC 01","reason":"match day"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if repo.lastVehicle != "42 ABC 01" || repo.lastReason != "match day" {
		t.Errorf("repository saw vehicle %q, reason %q", repo.lastVehicle, repo.lastReason)
	}
}

func TestCreateExtraDepartureValidation(t *testing.T) {
	repo := &stubLineRepo{lines: map[string]store.Line{"4": {LineID: "4"}}}
	h := NewLineHandler(repo)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing vehicle", `{"day_type":"H","departure":"08:30"}`, http.StatusBadRequest},
		{"bad day type", `{"day_type":"X","departure":"08:30","vehicle_no":"42 ABC 01"}`, http.StatusBadRequest},
		{"bad time", `{"day_type":"H","departure":"25:00","vehicle_no":"42 ABC 01"}`, http.StatusBadRequest},
		{"bad body", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := postDeparture(h, tc.body)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
	if repo.created != 0 {
		t.Errorf("rejected requests reached the repository %d times", repo.created)
	}

	// Unknown line: 404 before anything is created.
	empty := &stubLineRepo{lines: map[string]store.Line{}}
	rec := postDeparture(NewLineHandler(empty), `{"day_type":"H","departure":"08:30","vehicle_no":"42 ABC 01"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown line status = %d, want 404", rec.Code)
	}
}
