package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoData is the explicit "nothing to ingest" result: the data
// directory is missing or no file matched. Not a failure; callers report
// it to the user as an empty dataset.
var ErrNoData = errors.New("ingest: no matching source files")

// BoardingFilePattern matches the smartcard boarding-event exports
// (elkartbinis2021.csv, elkart_2022.csv, ...).
const BoardingFilePattern = "elkart*.csv"

// TripFilePattern matches the stop-to-stop travel logs
// (otobusdurakvaris01.csv, ...).
const TripFilePattern = "otobusdurakvaris*.csv"

// MatchFiles enumerates files in dir matching pattern, sorted by name
// for a deterministic ingestion order.
func MatchFiles(dir, pattern string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, ErrNoData
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoData
	}
	sort.Strings(matches)
	return matches, nil
}

// timetableExcluded lists name fragments that identify the other file
// families; the timetable file is whichever remaining CSV structurally
// looks like one.
var timetableExcluded = []string{"elkart", "durak", "guzergah", "hatbilgisi"}

// timetablePredicates is the prioritized discovery policy for the
// timetable file, evaluated in order. The first candidate that passes
// both its name predicate and the structural check wins.
var timetablePredicates = []func(name string) bool{
	func(name string) bool { return name == "tarifeler.csv" },
	func(name string) bool { return strings.Contains(name, "tarife") },
	func(name string) bool {
		if !strings.HasSuffix(name, ".csv") {
			return false
		}
		for _, ex := range timetableExcluded {
			if strings.Contains(name, ex) {
				return false
			}
		}
		return true
	},
}

// FindTimetableFile locates the departure-timetable export in dir.
// There is no fixed filename for it, so candidates are tried in a fixed
// priority order and validated structurally: a usable timetable file
// must resolve both a line-id and an hour column.
func FindTimetableFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", ErrNoData
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, pred := range timetablePredicates {
		for _, name := range names {
			if !pred(strings.ToLower(name)) {
				continue
			}
			path := filepath.Join(dir, name)
			if isTimetableFile(path) {
				return path, nil
			}
		}
	}
	return "", ErrNoData
}

func isTimetableFile(path string) bool {
	r, err := OpenRows(path)
	if err != nil {
		return false
	}
	defer r.Close()
	return r.Columns().Has(RoleLineID, RoleHour)
}
