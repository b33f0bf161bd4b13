package ingest

import (
	"io"
	"log"
	"strings"
	"time"
)

// TripRow is one stop-to-stop travel record: a vehicle departing an
// origin stop and arriving at a destination stop on one line.
type TripRow struct {
	LineID      string // canonical main line number
	OriginStop  string
	DestStop    string
	Departure   time.Time
	Arrival     time.Time
	VehicleNo   string
	DurationSec int
}

// tripTimeFormats are tried in order when parsing the departure and
// arrival timestamps of the travel logs.
var tripTimeFormats = []string{
	"2006-01-02 15:04:05",
	"02.01.2006 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// StreamTripRows reads every stop-to-stop travel log in dir and calls fn
// per parsed row. Rows with unparseable timestamps or missing stops are
// counted and skipped. Duration plausibility filtering is the travel-time
// estimator's concern, not done here; DurationSec may be negative.
func StreamTripRows(dir string, fn func(TripRow)) (Summary, error) {
	files, err := MatchFiles(dir, TripFilePattern)
	if err != nil {
		return Summary{}, err
	}

	var total Summary
	total.FilesMatched = len(files)
	for _, path := range files {
		s := streamTripFile(path, fn)
		total.merge(s)
	}
	if total.FilesRead == 0 {
		return total, ErrNoData
	}
	return total, nil
}

func streamTripFile(path string, fn func(TripRow)) Summary {
	var s Summary

	r, err := OpenRows(path)
	if err != nil {
		log.Printf("Warning: skipping trip file %s: %v", path, err)
		s.FilesSkipped++
		return s
	}
	defer r.Close()

	// Origin and destination stop columns are distinguished by the
	// baslangic/bitis prefixes the travel logs use; the shared resolver
	// only knows a single generic stop role.
	originIdx, destIdx := -1, -1
	lineIdx, vehicleIdx := -1, -1
	for i, h := range r.Header() {
		norm := NormalizeHeader(h)
		switch {
		case strings.Contains(norm, "BASLANGIC") && strings.Contains(norm, "DURAK"):
			originIdx = i
		case strings.Contains(norm, "BITIS") && strings.Contains(norm, "DURAK"):
			destIdx = i
		case strings.Contains(norm, "HAT") && strings.Contains(norm, "NO") && !strings.Contains(norm, "ALT"):
			lineIdx = i
		case strings.Contains(norm, "ARAC"):
			vehicleIdx = i
		}
	}

	cols := r.Columns()
	if originIdx < 0 || destIdx < 0 || lineIdx < 0 || !cols.Has(RoleDepartureTime, RoleArrivalTime) {
		log.Printf("Warning: trip file %s misses required columns, skipping", path)
		s.FilesSkipped++
		return s
	}
	s.FilesRead++

	at := func(record []string, i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return trimCell(record[i])
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.skipRow("malformed row")
			continue
		}

		line := CanonicalLineID(at(record, lineIdx))
		origin := at(record, originIdx)
		dest := at(record, destIdx)
		if line == "" || origin == "" || dest == "" {
			s.skipRow("missing identifier")
			continue
		}

		dep, ok := parseTripTime(r.Field(record, RoleDepartureTime))
		if !ok {
			s.skipRow("bad departure time")
			continue
		}
		arr, ok := parseTripTime(r.Field(record, RoleArrivalTime))
		if !ok {
			s.skipRow("bad arrival time")
			continue
		}

		s.RowsRead++
		fn(TripRow{
			LineID:      line,
			OriginStop:  origin,
			DestStop:    dest,
			Departure:   dep,
			Arrival:     arr,
			VehicleNo:   at(record, vehicleIdx),
			DurationSec: int(arr.Sub(dep).Seconds()),
		})
	}
	return s
}

func parseTripTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range tripTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
