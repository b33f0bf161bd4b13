// import-data loads the reference-data CSV exports into the entity
// store: lines, stops, stop sequences, route geometry and timetables.
// With a DATABASE_URL configured it also loads aggregated boarding
// history into the reporting warehouse.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"sort"
	"time"

	"github.com/QuanLionSoft/KonyaBusProject/internal/capacity"
	"github.com/QuanLionSoft/KonyaBusProject/internal/config"
	"github.com/QuanLionSoft/KonyaBusProject/internal/geo"
	"github.com/QuanLionSoft/KonyaBusProject/internal/ingest"
	"github.com/QuanLionSoft/KonyaBusProject/internal/series"
	"github.com/QuanLionSoft/KonyaBusProject/internal/store"
)

func main() {
	reset := flag.Bool("reset", false, "clear the entity store before importing")
	skipWarehouse := flag.Bool("skip-warehouse", false, "skip loading the reporting warehouse")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open entity store: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	if *reset {
		if err := db.Reset(ctx); err != nil {
			log.Fatalf("Failed to reset entity store: %v", err)
		}
	}

	importLines(ctx, db, cfg.DataDir)
	importLineStops(ctx, db, cfg.DataDir)
	importRoutes(ctx, db, cfg.DataDir)
	importTimetable(ctx, db, cfg.DataDir)

	if cfg.DatabaseURL != "" && !*skipWarehouse {
		loadWarehouse(ctx, cfg)
	}

	log.Println("Import finished")
}

func importLines(ctx context.Context, db *store.Store, dir string) {
	count := 0
	summary, err := ingest.StreamLineInfo(dir, func(li ingest.LineInfo) {
		err := db.UpsertLine(ctx, store.Line{
			LineID: li.LineID,
			Name:   li.Name,
			Region: li.Region,
		})
		if err != nil {
			log.Printf("Warning: %v", err)
			return
		}
		count++
	})
	if errors.Is(err, ingest.ErrNoData) {
		log.Println("No line master data found, skipping")
		return
	}
	if err != nil {
		log.Fatalf("Failed to import lines: %v", err)
	}
	log.Printf("Lines: %d imported (%d rows read, %d skipped)", count, summary.RowsRead, summary.RowsSkipped)
}

// lineDir keys a stop or route sequence by line and direction.
type lineDir struct {
	lineID    string
	direction int
}

func importLineStops(ctx context.Context, db *store.Store, dir string) {
	type seqStop struct {
		seq    int
		stopID string
	}
	sequences := make(map[lineDir][]seqStop)
	badCoords := 0

	summary, err := ingest.StreamLineStops(dir, func(row ingest.LineStopRow) {
		st := store.Stop{StopID: row.StopID, Name: row.StopName}
		if row.RawLat != "" && row.RawLng != "" {
			if lat, lng, err := geo.RepairPair(row.RawLat, row.RawLng); err == nil {
				st.Latitude = &lat
				st.Longitude = &lng
			} else {
				badCoords++
			}
		}
		if err := db.UpsertStop(ctx, st); err != nil {
			log.Printf("Warning: %v", err)
			return
		}
		key := lineDir{row.LineID, row.Direction}
		sequences[key] = append(sequences[key], seqStop{row.Seq, row.StopID})
	})
	if errors.Is(err, ingest.ErrNoData) {
		log.Println("No stop sequence data found, skipping")
		return
	}
	if err != nil {
		log.Fatalf("Failed to import stop sequences: %v", err)
	}

	for key, stops := range sequences {
		sort.Slice(stops, func(i, j int) bool { return stops[i].seq < stops[j].seq })
		ids := make([]string, len(stops))
		for i, s := range stops {
			ids[i] = s.stopID
		}
		if err := db.UpsertLine(ctx, store.Line{LineID: key.lineID}); err != nil {
			log.Printf("Warning: %v", err)
		}
		if err := db.SetLineStops(ctx, key.lineID, key.direction, ids); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	log.Printf("Stop sequences: %d lines (%d rows read, %d skipped, %d unrepairable coordinates)",
		len(sequences), summary.RowsRead, summary.RowsSkipped, badCoords)
}

func importRoutes(ctx context.Context, db *store.Store, dir string) {
	type seqPoint struct {
		seq   int
		point store.RoutePoint
	}
	routes := make(map[lineDir][]seqPoint)
	badCoords := 0

	summary, err := ingest.StreamRoutePoints(dir, func(row ingest.RoutePointRow) {
		lat, lng, err := geo.RepairPair(row.RawLat, row.RawLng)
		if err != nil {
			badCoords++
			return
		}
		key := lineDir{row.LineID, row.Direction}
		routes[key] = append(routes[key], seqPoint{row.Seq, store.RoutePoint{Latitude: lat, Longitude: lng}})
	})
	if errors.Is(err, ingest.ErrNoData) {
		log.Println("No route geometry found, skipping")
		return
	}
	if err != nil {
		log.Fatalf("Failed to import route geometry: %v", err)
	}

	for key, points := range routes {
		sort.Slice(points, func(i, j int) bool { return points[i].seq < points[j].seq })
		ps := make([]store.RoutePoint, len(points))
		for i, p := range points {
			ps[i] = p.point
		}
		if err := db.UpsertLine(ctx, store.Line{LineID: key.lineID}); err != nil {
			log.Printf("Warning: %v", err)
		}
		if err := db.SetRoutePoints(ctx, key.lineID, key.direction, ps); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	log.Printf("Route geometry: %d lines (%d rows read, %d skipped, %d points dropped)",
		len(routes), summary.RowsRead, summary.RowsSkipped, badCoords)
}

func importTimetable(ctx context.Context, db *store.Store, dir string) {
	count := 0
	summary, err := ingest.StreamTimetable(dir, func(row ingest.TimetableRow) {
		if err := db.UpsertLine(ctx, store.Line{LineID: row.LineID}); err != nil {
			log.Printf("Warning: %v", err)
			return
		}
		err := db.AddTimetableEntry(ctx, row.LineID, capacity.DayType(row.DayCode), row.Departure)
		if err != nil {
			log.Printf("Warning: %v", err)
			return
		}
		count++
	})
	if errors.Is(err, ingest.ErrNoData) {
		log.Println("No timetable file found, skipping")
		return
	}
	if err != nil {
		log.Fatalf("Failed to import timetable: %v", err)
	}
	log.Printf("Timetable: %d departures (%d rows read, %d skipped)", count, summary.RowsRead, summary.RowsSkipped)
}

// loadWarehouse aggregates boarding events to daily totals per line and
// loads them into the reporting database.
func loadWarehouse(ctx context.Context, cfg *config.Config) {
	warehouse, err := store.NewWarehouse(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to reporting warehouse: %v", err)
	}
	defer warehouse.Close()
	if err := warehouse.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure warehouse schema: %v", err)
	}

	type lineDay struct {
		lineID string
		day    string
	}
	totals := make(map[lineDay]float64)
	summary, err := ingest.StreamBoardingEvents(cfg.DataDir, "", func(ev ingest.BoardingEvent) {
		t, ok := series.ParseTimestamp(ev.Date, ev.Hour)
		if !ok {
			return
		}
		totals[lineDay{ev.LineID, t.Format("2006-01-02")}] += ev.Passengers
	})
	if errors.Is(err, ingest.ErrNoData) {
		log.Println("No boarding history found, warehouse left untouched")
		return
	}
	if err != nil {
		log.Fatalf("Failed to read boarding history: %v", err)
	}

	loaded := 0
	for key, passengers := range totals {
		day, err := time.Parse("2006-01-02", key.day)
		if err != nil {
			continue
		}
		err = warehouse.UpsertDailyTotal(ctx, store.DailyTotal{
			LineID:     key.lineID,
			Day:        day,
			Passengers: passengers,
		})
		if err != nil {
			log.Printf("Warning: %v", err)
			continue
		}
		loaded++
	}
	log.Printf("Warehouse: %d line-days loaded (%d rows read, %d skipped)",
		loaded, summary.RowsRead, summary.RowsSkipped)
}
