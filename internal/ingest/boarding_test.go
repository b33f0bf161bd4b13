package ingest

import (
	"errors"
	"testing"
)

// TestStreamBoardingEvents verifies the whole boarding pipeline on a
// directory mixing a usable file, a file with the wrong columns and rows
// that must be skipped, with the skip reasons surfaced in the summary.
func TestStreamBoardingEvents(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "elkart2021.csv", []byte(
		"HAT NO;TARIH;SAAT;BINIS SAYISI\n"+
			"4;2021-01-04;08;12\n"+
			"04.00;2021-01-04;09;3\n"+
			";2021-01-04;10;5\n"+ // missing line id
			"7;2021-01-04;08;1\n"))
	// Wrong columns: counted as skipped file, not a failure.
	writeFile(t, dir, "elkart_broken.csv", []byte("FOO;BAR\n1;2\n"))

	var events []BoardingEvent
	summary, err := StreamBoardingEvents(dir, "4", func(ev BoardingEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("StreamBoardingEvents: %v", err)
	}

	if summary.FilesMatched != 2 || summary.FilesRead != 1 || summary.FilesSkipped != 1 {
		t.Errorf("file counts = %d/%d/%d, want 2 matched, 1 read, 1 skipped",
			summary.FilesMatched, summary.FilesRead, summary.FilesSkipped)
	}
	if summary.SkipReasons["missing line id"] != 1 {
		t.Errorf("skip reasons = %v, want one 'missing line id'", summary.SkipReasons)
	}

	// "04.00" canonicalizes to "4", so the filter keeps it; line 7 is
	// filtered out without being counted as a skip.
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %v", len(events), events)
	}
	if events[0].Passengers != 12 || events[1].Passengers != 3 {
		t.Errorf("passenger counts = %v, %v, want 12, 3", events[0].Passengers, events[1].Passengers)
	}
	for _, ev := range events {
		if ev.LineID != "4" {
			t.Errorf("event for line %q leaked through the filter", ev.LineID)
		}
	}
}

// TestStreamBoardingEventsDefaultPassengers: files without a passenger
// column mean one boarding per row.
func TestStreamBoardingEventsDefaultPassengers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "elkart2022.csv", []byte(
		"HAT NO;ISLEM_ZAMANI\n4;2021-01-04 08:15:00\n4;2021-01-04 08:40:00\n"))

	total := 0.0
	_, err := StreamBoardingEvents(dir, "", func(ev BoardingEvent) {
		total += ev.Passengers
	})
	if err != nil {
		t.Fatalf("StreamBoardingEvents: %v", err)
	}
	if total != 2 {
		t.Errorf("total passengers = %v, want 2 (one per row)", total)
	}
}

func TestStreamBoardingEventsNoData(t *testing.T) {
	dir := t.TempDir()
	_, err := StreamBoardingEvents(dir, "", func(BoardingEvent) {})
	if !errors.Is(err, ErrNoData) {
		t.Errorf("empty dir error = %v, want ErrNoData", err)
	}

	// Files matched but none readable is also no data.
	writeFile(t, dir, "elkart_bad.csv", []byte("FOO;BAR\n"))
	_, err = StreamBoardingEvents(dir, "", func(BoardingEvent) {})
	if !errors.Is(err, ErrNoData) {
		t.Errorf("all-skipped error = %v, want ErrNoData", err)
	}
}

func TestStreamTripRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "otobusdurakvaris01.csv", []byte(
		"HAT_NO;ALT_HAT_NO;ARAC NO;BASLANGIC DURAK NO;BITIS DURAK NO;CIKIS SAATI;VARIS SAATI\n"+
			"4;4-1;B101;1001;1002;2021-01-04 08:00:00;2021-01-04 08:03:30\n"+
			"4;4-1;B101;1002;1003;2021-01-04 08:03:30;garbage\n"))

	var rows []TripRow
	summary, err := StreamTripRows(dir, func(row TripRow) {
		rows = append(rows, row)
	})
	if err != nil {
		t.Fatalf("StreamTripRows: %v", err)
	}
	if summary.RowsRead != 1 || summary.RowsSkipped != 1 {
		t.Errorf("rows = %d read, %d skipped, want 1/1", summary.RowsRead, summary.RowsSkipped)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.LineID != "4" || row.OriginStop != "1001" || row.DestStop != "1002" {
		t.Errorf("row identifiers = %q %q %q", row.LineID, row.OriginStop, row.DestStop)
	}
	if row.DurationSec != 210 {
		t.Errorf("duration = %d seconds, want 210", row.DurationSec)
	}
	if row.VehicleNo != "B101" {
		t.Errorf("vehicle = %q, want B101", row.VehicleNo)
	}
}

// TestFindTimetableFile checks the discovery priority: an exact
// tarifeler.csv wins, then any tarife-named file, then any structurally
// plausible leftover CSV; files of the other families never match.
func TestFindTimetableFile(t *testing.T) {
	timetable := []byte("HAT NO;GUN;SAAT\n4;H;07:00\n")

	dir := t.TempDir()
	writeFile(t, dir, "elkart2021.csv", []byte("HAT NO;TARIH;SAAT\n"))
	writeFile(t, dir, "schedule_export.csv", timetable)
	path, err := FindTimetableFile(dir)
	if err != nil {
		t.Fatalf("FindTimetableFile: %v", err)
	}
	if got := path; got == "" || !endsWith(got, "schedule_export.csv") {
		t.Errorf("discovered %q, want schedule_export.csv", got)
	}

	// An exact tarifeler.csv takes priority over the generic fallback.
	writeFile(t, dir, "tarifeler.csv", timetable)
	path, err = FindTimetableFile(dir)
	if err != nil {
		t.Fatalf("FindTimetableFile: %v", err)
	}
	if !endsWith(path, "tarifeler.csv") {
		t.Errorf("discovered %q, want tarifeler.csv", path)
	}
}

func TestFindTimetableFileRejectsWrongStructure(t *testing.T) {
	dir := t.TempDir()
	// Named like a timetable but missing the hour column.
	writeFile(t, dir, "tarifeler.csv", []byte("FOO;BAR\n1;2\n"))
	if _, err := FindTimetableFile(dir); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData for structurally invalid candidates, got %v", err)
	}
}

func endsWith(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
