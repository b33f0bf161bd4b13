// Package sim estimates live bus positions from the timetable: each
// departure traverses its line's route polyline at constant pace over a
// fixed trip duration.
package sim

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/QuanLionSoft/KonyaBusProject/internal/store"
)

// TripDuration is the assumed end-to-end travel time of one departure.
const TripDuration = time.Hour

// WaitingWindow is how long before its departure a bus appears at the
// first stop in WAITING state.
const WaitingWindow = time.Hour

// BusStatus is the simulated lifecycle state of one departure.
type BusStatus string

const (
	StatusWaiting BusStatus = "WAITING"
	StatusActive  BusStatus = "ACTIVE"
)

// Bus is one simulated vehicle position.
type Bus struct {
	LineID    string    `json:"line_id"`
	Departure string    `json:"departure"` // HH:MM
	Status    BusStatus `json:"status"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Progress  float64   `json:"progress"` // 0..1 along the route
	Extra     bool      `json:"extra"`
}

// Snapshot computes the simulated buses of one line at the given
// instant. Departures more than TripDuration in the past have finished;
// departures more than WaitingWindow in the future are not shown yet.
// Lines without route geometry produce no buses.
func Snapshot(route []store.RoutePoint, departures []store.Departure, now time.Time) []Bus {
	if len(route) < 2 {
		return nil
	}

	var buses []Bus
	for _, d := range departures {
		dep, ok := departureTime(d.Departure, now)
		if !ok {
			continue
		}
		elapsed := now.Sub(dep)

		switch {
		case elapsed >= 0 && elapsed < TripDuration:
			progress := float64(elapsed) / float64(TripDuration)
			lat, lng := interpolate(route, progress)
			buses = append(buses, Bus{
				LineID:    d.LineID,
				Departure: d.Departure,
				Status:    StatusActive,
				Latitude:  lat,
				Longitude: lng,
				Progress:  progress,
				Extra:     d.Extra,
			})
		case elapsed < 0 && elapsed > -WaitingWindow:
			buses = append(buses, Bus{
				LineID:    d.LineID,
				Departure: d.Departure,
				Status:    StatusWaiting,
				Latitude:  route[0].Latitude,
				Longitude: route[0].Longitude,
				Extra:     d.Extra,
			})
		}
	}
	return buses
}

// interpolate returns the point at the given fraction of the polyline,
// measured in segment count rather than geographic distance.
func interpolate(route []store.RoutePoint, progress float64) (float64, float64) {
	if progress <= 0 {
		return route[0].Latitude, route[0].Longitude
	}
	if progress >= 1 {
		last := route[len(route)-1]
		return last.Latitude, last.Longitude
	}
	pos := progress * float64(len(route)-1)
	i := int(pos)
	frac := pos - float64(i)
	a, b := route[i], route[i+1]
	return a.Latitude + (b.Latitude-a.Latitude)*frac,
		a.Longitude + (b.Longitude-a.Longitude)*frac
}

// departureTime anchors an HH:MM departure on the calendar day of now.
func departureTime(hhmm string, now time.Time) (time.Time, bool) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return time.Time{}, false
	}
	return time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location()), true
}

// SubjectFor builds the NATS subject for one bus position message.
func SubjectFor(b Bus) string {
	return fmt.Sprintf("buses.%s.%s", subjectToken(b.LineID), subjectToken(b.Departure))
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", ":", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
