package ingest

import (
	"io"
	"log"
	"strconv"
)

// BoardingEvent is one smartcard boarding record after column resolution
// and identifier reconciliation. Date and Hour stay as raw strings here;
// timestamp parsing belongs to the series builder, which owns the format
// fallback list.
type BoardingEvent struct {
	LineID     string // canonical
	Date       string
	Hour       string
	StopID     string
	Passengers float64
}

// StreamBoardingEvents reads every boarding-event file in dir and calls
// fn for each usable row, optionally filtered to one canonical line id
// (empty targetLine means all lines). Malformed rows are counted and
// skipped; unreadable files are logged and skipped; only a completely
// empty match set returns ErrNoData.
func StreamBoardingEvents(dir, targetLine string, fn func(BoardingEvent)) (Summary, error) {
	files, err := MatchFiles(dir, BoardingFilePattern)
	if err != nil {
		return Summary{}, err
	}

	var total Summary
	total.FilesMatched = len(files)

	for _, path := range files {
		s := streamBoardingFile(path, targetLine, fn)
		total.merge(s)
	}
	if total.FilesRead == 0 {
		return total, ErrNoData
	}
	return total, nil
}

func streamBoardingFile(path, targetLine string, fn func(BoardingEvent)) Summary {
	var s Summary

	r, err := OpenRows(path)
	if err != nil {
		log.Printf("Warning: skipping boarding file %s: %v", path, err)
		s.FilesSkipped++
		return s
	}
	defer r.Close()

	cols := r.Columns()
	if !cols.Has(RoleLineID, RoleDate, RoleHour) {
		log.Printf("Warning: boarding file %s misses required columns, skipping", path)
		s.FilesSkipped++
		return s
	}
	s.FilesRead++

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.skipRow("malformed row")
			continue
		}

		line := CanonicalLineID(r.Field(record, RoleLineID))
		if line == "" {
			s.skipRow("missing line id")
			continue
		}
		if targetLine != "" && line != targetLine {
			continue
		}

		date := r.Field(record, RoleDate)
		hour := r.Field(record, RoleHour)
		if date == "" {
			s.skipRow("missing date")
			continue
		}

		// A missing or unparsable passenger column means one boarding
		// per row; the source format has no unique event key, duplicates
		// are summed downstream rather than deduplicated.
		passengers := 1.0
		if raw := r.Field(record, RolePassengerCount); raw != "" {
			if v, err := strconv.ParseFloat(normalizeDecimal(raw), 64); err == nil && v > 0 {
				passengers = v
			}
		}

		s.RowsRead++
		fn(BoardingEvent{
			LineID:     line,
			Date:       date,
			Hour:       hour,
			StopID:     r.Field(record, RoleStopID),
			Passengers: passengers,
		})
	}
	return s
}

// normalizeDecimal turns a Turkish-locale decimal comma into a point.
func normalizeDecimal(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out[i] = '.'
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}
