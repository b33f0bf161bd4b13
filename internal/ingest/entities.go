package ingest

import (
	"io"
	"log"
	"strconv"
	"strings"
)

// Entity file families of the reference-data exports.
const (
	// LineInfoPattern matches line master data (hatbilgisi.csv, ...).
	LineInfoPattern = "hatbilgisi*.csv"
	// LineStopPattern matches per-line stop sequences (hatdurak.csv, ...).
	LineStopPattern = "hatdurak*.csv"
	// RoutePattern matches route geometry exports (guzergah.csv, ...).
	RoutePattern = "guzergah*.csv"
)

// LineInfo is one line master-data record.
type LineInfo struct {
	LineID string
	Name   string
	Region string
}

// LineStopRow is one stop of a line's stop sequence. Coordinates stay
// raw; repair and validation happen in the geo package.
type LineStopRow struct {
	LineID    string
	StopID    string
	StopName  string
	Seq       int
	Direction int
	RawLat    string
	RawLng    string
}

// RoutePointRow is one vertex of a line's route geometry, raw.
type RoutePointRow struct {
	LineID    string
	Seq       int
	Direction int
	RawLat    string
	RawLng    string
}

// TimetableRow is one planned departure: line, day code (H, C or P) and
// an HH:MM departure time.
type TimetableRow struct {
	LineID    string
	DayCode   string
	Departure string
}

// StreamLineInfo reads every line master-data file in dir.
func StreamLineInfo(dir string, fn func(LineInfo)) (Summary, error) {
	return streamEntityFiles(dir, LineInfoPattern, func(r *RowReader, s *Summary) {
		nameIdx := findHeader(r.Header(), "ADI", "AD")
		regionIdx := findHeader(r.Header(), "BOLGE")
		lineIdx := lineHeaderIndex(r.Header())
		if lineIdx < 0 {
			return
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
			line := CanonicalLineID(cellAt(record, lineIdx))
			if line == "" {
				s.skipRow("missing line id")
				continue
			}
			s.RowsRead++
			fn(LineInfo{
				LineID: line,
				Name:   cellAt(record, nameIdx),
				Region: cellAt(record, regionIdx),
			})
		}
	}, RoleLineID)
}

// StreamLineStops reads every per-line stop sequence file in dir.
func StreamLineStops(dir string, fn func(LineStopRow)) (Summary, error) {
	return streamEntityFiles(dir, LineStopPattern, func(r *RowReader, s *Summary) {
		header := r.Header()
		lineIdx := lineHeaderIndex(header)
		nameIdx := findHeader(header, "DURAK_ADI", "DURAKADI")
		seqIdx := findHeader(header, "SIRA")
		dirIdx := findHeader(header, "YON")
		latIdx := findHeader(header, "ENLEM", "LAT", "Y_KOORDINAT")
		lngIdx := findHeader(header, "BOYLAM", "LNG", "LON", "X_KOORDINAT")
		if lineIdx < 0 {
			return
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
			line := CanonicalLineID(cellAt(record, lineIdx))
			stop := r.Field(record, RoleStopID)
			if line == "" || stop == "" {
				s.skipRow("missing identifier")
				continue
			}
			s.RowsRead++
			fn(LineStopRow{
				LineID:    line,
				StopID:    stop,
				StopName:  cellAt(record, nameIdx),
				Seq:       intAt(record, seqIdx),
				Direction: intAt(record, dirIdx),
				RawLat:    cellAt(record, latIdx),
				RawLng:    cellAt(record, lngIdx),
			})
		}
	}, RoleStopID)
}

// StreamRoutePoints reads every route geometry file in dir.
func StreamRoutePoints(dir string, fn func(RoutePointRow)) (Summary, error) {
	return streamEntityFiles(dir, RoutePattern, func(r *RowReader, s *Summary) {
		header := r.Header()
		lineIdx := lineHeaderIndex(header)
		seqIdx := findHeader(header, "SIRA")
		dirIdx := findHeader(header, "YON")
		latIdx := findHeader(header, "ENLEM", "LAT", "Y_KOORDINAT")
		lngIdx := findHeader(header, "BOYLAM", "LNG", "LON", "X_KOORDINAT")
		if lineIdx < 0 || latIdx < 0 || lngIdx < 0 {
			return
		}
		seqFallback := 0
		for {
			record, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				s.skipRow("malformed row")
				continue
			}
			line := CanonicalLineID(cellAt(record, lineIdx))
			if line == "" {
				s.skipRow("missing line id")
				continue
			}
			seq := intAt(record, seqIdx)
			if seqIdx < 0 {
				seq = seqFallback
				seqFallback++
			}
			s.RowsRead++
			fn(RoutePointRow{
				LineID:    line,
				Seq:       seq,
				Direction: intAt(record, dirIdx),
				RawLat:    cellAt(record, latIdx),
				RawLng:    cellAt(record, lngIdx),
			})
		}
	}, RoleLineID)
}

// StreamTimetable reads the discovered timetable file. Day codes other
// than H, C and P are skipped.
func StreamTimetable(dir string, fn func(TimetableRow)) (Summary, error) {
	path, err := FindTimetableFile(dir)
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	s.FilesMatched = 1
	r, err := OpenRows(path)
	if err != nil {
		log.Printf("Warning: skipping timetable file %s: %v", path, err)
		s.FilesSkipped++
		return s, ErrNoData
	}
	defer r.Close()
	s.FilesRead++

	dayIdx := findHeader(r.Header(), "GUN", "TARIFE_TIPI", "TIP")
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
		departure := normalizeDeparture(r.Field(record, RoleHour))
		if line == "" || departure == "" {
			s.skipRow("missing identifier")
			continue
		}
		day := strings.ToUpper(cellAt(record, dayIdx))
		if day == "" {
			day = "H"
		}
		if day != "H" && day != "C" && day != "P" {
			s.skipRow("unknown day code")
			continue
		}
		s.RowsRead++
		fn(TimetableRow{LineID: line, DayCode: day, Departure: departure})
	}
	return s, nil
}

// streamEntityFiles runs one parser over every file of a pattern,
// requiring the given role to have resolved.
func streamEntityFiles(dir, pattern string, parse func(*RowReader, *Summary), required Role) (Summary, error) {
	files, err := MatchFiles(dir, pattern)
	if err != nil {
		return Summary{}, err
	}

	var total Summary
	total.FilesMatched = len(files)
	for _, path := range files {
		var s Summary
		r, err := OpenRows(path)
		if err != nil {
			log.Printf("Warning: skipping entity file %s: %v", path, err)
			s.FilesSkipped++
			total.merge(s)
			continue
		}
		if !r.Columns().Has(required) {
			log.Printf("Warning: entity file %s misses required columns, skipping", path)
			r.Close()
			s.FilesSkipped++
			total.merge(s)
			continue
		}
		s.FilesRead++
		parse(r, &s)
		r.Close()
		total.merge(s)
	}
	if total.FilesRead == 0 {
		return total, ErrNoData
	}
	return total, nil
}

// lineHeaderIndex finds the line-number column without picking up the
// sub-line ("ALT HAT") variants.
func lineHeaderIndex(header []string) int {
	for i, h := range header {
		norm := NormalizeHeader(h)
		if strings.Contains(norm, "HAT") && strings.Contains(norm, "NO") && !strings.Contains(norm, "ALT") {
			return i
		}
	}
	return -1
}

// findHeader returns the first column whose normalized header contains
// any of the fragments, or -1.
func findHeader(header []string, fragments ...string) int {
	for i, h := range header {
		norm := NormalizeHeader(h)
		for _, frag := range fragments {
			if strings.Contains(norm, frag) {
				return i
			}
		}
	}
	return -1
}

func cellAt(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return trimCell(record[i])
}

func intAt(record []string, i int) int {
	v, err := strconv.Atoi(cellAt(record, i))
	if err != nil {
		return 0
	}
	return v
}

// normalizeDeparture shapes a departure cell into HH:MM: "7:5" and
// "07:05:00" both become "07:05"; a bare hour becomes "HH:00".
func normalizeDeparture(s string) string {
	if s == "" {
		return ""
	}
	parts := strings.Split(s, ":")
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || h < 0 || h > 23 {
		return ""
	}
	m := 0
	if len(parts) > 1 {
		m, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || m < 0 || m > 59 {
			return ""
		}
	}
	return twoDigits(h) + ":" + twoDigits(m)
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
