package sim

import (
	"math"
	"testing"
	"time"

	"github.com/QuanLionSoft/KonyaBusProject/internal/capacity"
	"github.com/QuanLionSoft/KonyaBusProject/internal/store"
)

var testRoute = []store.RoutePoint{
	{Latitude: 37.90, Longitude: 32.40},
	{Latitude: 37.92, Longitude: 32.44},
	{Latitude: 37.94, Longitude: 32.48},
}

func dep(lineID, hhmm string, extra bool) store.Departure {
	return store.Departure{
		LineID:    lineID,
		DayType:   capacity.DayWeekday,
		Departure: hhmm,
		Extra:     extra,
	}
}

// TestSnapshotLifecycle: a departure is WAITING up to an hour before it
// leaves, ACTIVE while traversing, and gone after the trip duration.
func TestSnapshotLifecycle(t *testing.T) {
	now := time.Date(2021, 1, 4, 9, 30, 0, 0, time.UTC)
	deps := []store.Departure{
		dep("4", "09:00", false), // active, halfway
		dep("4", "10:00", false), // waiting at first stop
		dep("4", "08:00", false), // finished
		dep("4", "11:30", false), // too far in the future
	}

	buses := Snapshot(testRoute, deps, now)
	if len(buses) != 2 {
		t.Fatalf("got %d buses, want 2: %v", len(buses), buses)
	}

	var active, waiting *Bus
	for i := range buses {
		switch buses[i].Status {
		case StatusActive:
			active = &buses[i]
		case StatusWaiting:
			waiting = &buses[i]
		}
	}
	if active == nil || waiting == nil {
		t.Fatalf("missing state: %v", buses)
	}

	if math.Abs(active.Progress-0.5) > 1e-9 {
		t.Errorf("active progress = %v, want 0.5", active.Progress)
	}
	// Halfway along the 3-point route is exactly the middle vertex.
	if math.Abs(active.Latitude-37.92) > 1e-9 || math.Abs(active.Longitude-32.44) > 1e-9 {
		t.Errorf("active position = (%v, %v), want middle vertex", active.Latitude, active.Longitude)
	}

	if waiting.Latitude != testRoute[0].Latitude || waiting.Longitude != testRoute[0].Longitude {
		t.Errorf("waiting bus not at the first stop: (%v, %v)", waiting.Latitude, waiting.Longitude)
	}
	if waiting.Progress != 0 {
		t.Errorf("waiting progress = %v, want 0", waiting.Progress)
	}
}

func TestSnapshotInterpolatesBetweenVertices(t *testing.T) {
	now := time.Date(2021, 1, 4, 9, 15, 0, 0, time.UTC) // 25% into an 09:00 trip
	buses := Snapshot(testRoute, []store.Departure{dep("4", "09:00", false)}, now)
	if len(buses) != 1 {
		t.Fatalf("got %d buses, want 1", len(buses))
	}
	b := buses[0]
	// 25% of 2 segments lands halfway into the first segment.
	if math.Abs(b.Latitude-37.91) > 1e-9 || math.Abs(b.Longitude-32.42) > 1e-9 {
		t.Errorf("position = (%v, %v), want (37.91, 32.42)", b.Latitude, b.Longitude)
	}
}

func TestSnapshotExtraFlagPropagates(t *testing.T) {
	now := time.Date(2021, 1, 4, 9, 30, 0, 0, time.UTC)
	buses := Snapshot(testRoute, []store.Departure{dep("4", "09:00", true)}, now)
	if len(buses) != 1 || !buses[0].Extra {
		t.Errorf("extra departure flag lost: %v", buses)
	}
}

func TestSnapshotNeedsRouteGeometry(t *testing.T) {
	now := time.Date(2021, 1, 4, 9, 30, 0, 0, time.UTC)
	deps := []store.Departure{dep("4", "09:00", false)}
	if buses := Snapshot(nil, deps, now); buses != nil {
		t.Errorf("expected no buses without geometry, got %v", buses)
	}
	single := []store.RoutePoint{{Latitude: 37.9, Longitude: 32.4}}
	if buses := Snapshot(single, deps, now); buses != nil {
		t.Errorf("expected no buses for a degenerate route, got %v", buses)
	}
}

func TestSnapshotSkipsMalformedDepartures(t *testing.T) {
	now := time.Date(2021, 1, 4, 9, 30, 0, 0, time.UTC)
	deps := []store.Departure{dep("4", "25:99", false), dep("4", "garbage", false)}
	if buses := Snapshot(testRoute, deps, now); len(buses) != 0 {
		t.Errorf("malformed departures produced buses: %v", buses)
	}
}

func TestSubjectFor(t *testing.T) {
	b := Bus{LineID: "56-1", Departure: "09:30"}
	if got := SubjectFor(b); got != "buses.56-1.09_30" {
		t.Errorf("SubjectFor = %q", got)
	}
}
