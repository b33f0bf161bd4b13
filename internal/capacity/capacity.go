// Package capacity compares scheduled carrying capacity against average
// passenger demand per hour of the service day.
package capacity

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Service-day bounds: buses do not run between midnight and 6.
const (
	FirstServiceHour = 6
	LastServiceHour  = 23
)

// VehicleCapacity is the assumed passenger capacity of one bus.
const VehicleCapacity = 100

// DayType is the timetable's day classification.
type DayType string

const (
	DayWeekday  DayType = "H"
	DaySaturday DayType = "C"
	DaySunday   DayType = "P"
)

// DayTypeFor maps a calendar date to its timetable day code.
func DayTypeFor(t time.Time) DayType {
	switch t.Weekday() {
	case time.Saturday:
		return DaySaturday
	case time.Sunday:
		return DaySunday
	default:
		return DayWeekday
	}
}

// Status labels a capacity/demand ratio for one hour.
type Status string

const (
	StatusNormal      Status = "NORMAL"
	StatusWatch       Status = "WATCH"
	StatusOvercrowded Status = "OVERCROWDED"
	// StatusNoService flags demand against an hour with zero scheduled
	// trips; the occupancy percentage carries the sentinel value.
	StatusNoService Status = "NO_SERVICE"
)

// NoServiceOccupancy is the sentinel occupancy for demand without any
// scheduled capacity. A real ratio would be infinite; -1 keeps the
// column numeric while remaining impossible as a true percentage.
const NoServiceOccupancy = -1

// HourReport is the capacity analysis for one hour of the service day.
type HourReport struct {
	Hour         int     `json:"hour"`
	Trips        int     `json:"trips"`
	Capacity     int     `json:"capacity"`
	AvgDemand    float64 `json:"avg_demand"`
	OccupancyPct int     `json:"occupancy_pct"`
	Status       Status  `json:"status"`
}

// Report is the full per-line analysis for one day type.
type Report struct {
	LineID  string       `json:"line_id"`
	DayType DayType      `json:"day_type"`
	Hours   []HourReport `json:"hours"`
}

// ScheduleSource yields the number of scheduled departures for a line,
// day type and hour.
type ScheduleSource interface {
	TripsPerHour(lineID string, day DayType) (map[int]int, error)
}

// DemandSource yields the average boardings per hour of the service day
// for a line.
type DemandSource interface {
	AvgDemandByHour(lineID string) (map[int]float64, error)
}

// ErrNoSchedule means the line has no timetable at all for the day type.
var ErrNoSchedule = errors.New("capacity: no schedule for line")

// Analyzer joins a schedule source and a demand source into reports.
type Analyzer struct {
	Schedule ScheduleSource
	Demand   DemandSource
}

// Analyze builds the hour-by-hour report for one line on one day type.
// Hours outside the service day are not reported.
func (a *Analyzer) Analyze(lineID string, day DayType) (*Report, error) {
	trips, err := a.Schedule.TripsPerHour(lineID, day)
	if err != nil {
		return nil, fmt.Errorf("capacity: reading schedule for line %s: %w", lineID, err)
	}
	if len(trips) == 0 {
		return nil, ErrNoSchedule
	}
	demand, err := a.Demand.AvgDemandByHour(lineID)
	if err != nil {
		return nil, fmt.Errorf("capacity: reading demand for line %s: %w", lineID, err)
	}

	report := &Report{LineID: lineID, DayType: day}
	for hour := FirstServiceHour; hour <= LastServiceHour; hour++ {
		n := trips[hour]
		cap := n * VehicleCapacity
		avg := demand[hour]

		h := HourReport{
			Hour:      hour,
			Trips:     n,
			Capacity:  cap,
			AvgDemand: avg,
		}
		switch {
		case cap == 0 && avg > 0:
			h.OccupancyPct = NoServiceOccupancy
			h.Status = StatusNoService
		case cap == 0:
			h.Status = StatusNormal
		default:
			pct := int(math.Round(avg / float64(cap) * 100))
			h.OccupancyPct = pct
			switch {
			case pct > 100:
				h.Status = StatusOvercrowded
			case pct > 80:
				h.Status = StatusWatch
			default:
				h.Status = StatusNormal
			}
		}
		report.Hours = append(report.Hours, h)
	}
	return report, nil
}
