// simulator streams schedule-estimated bus positions onto NATS at a
// fixed interval and exposes Prometheus metrics.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/QuanLionSoft/KonyaBusProject/internal/capacity"
	"github.com/QuanLionSoft/KonyaBusProject/internal/config"
	"github.com/QuanLionSoft/KonyaBusProject/internal/metrics"
	"github.com/QuanLionSoft/KonyaBusProject/internal/sim"
	"github.com/QuanLionSoft/KonyaBusProject/internal/store"
)

type natsMetrics struct {
	c *metrics.Collector
}

func (m natsMetrics) PublishedInc()  { m.c.NATSPublished.Inc() }
func (m natsMetrics) PublishErrInc() { m.c.NATSPublishErrs.Inc() }

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open entity store: %v", err)
	}
	defer db.Close()

	collector := metrics.NewCollector()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		log.Printf("Metrics listening on %s", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	publisher, err := sim.NewPublisher(cfg.NATSURL, natsMetrics{c: collector})
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer publisher.Close()

	ticker := time.NewTicker(cfg.PublishInterval)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Simulator publishing every %s", cfg.PublishInterval)
	for {
		select {
		case <-stop:
			log.Println("Simulator shutting down")
			return
		case <-ticker.C:
			publishTick(db, publisher, collector)
		}
	}
}

// publishTick snapshots every line and publishes its active buses.
func publishTick(db *store.Store, publisher *sim.Publisher, collector *metrics.Collector) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()
	day := capacity.DayTypeFor(now)

	lines, err := db.ListLines(ctx)
	if err != nil {
		log.Printf("Warning: listing lines failed: %v", err)
		return
	}

	active := 0
	for _, line := range lines {
		route, err := db.RouteForLine(ctx, line.LineID, 0)
		if err != nil || len(route) < 2 {
			continue
		}
		deps, err := db.DeparturesForDay(ctx, line.LineID, day)
		if err != nil {
			log.Printf("Warning: timetable for line %s failed: %v", line.LineID, err)
			continue
		}

		for _, bus := range sim.Snapshot(route, deps, now) {
			if bus.Status == sim.StatusActive {
				active++
			}
			if err := publisher.PublishBus(bus, now); err != nil {
				log.Printf("Warning: publish failed for line %s: %v", line.LineID, err)
			}
		}
	}
	collector.ActiveBuses.Set(float64(active))
}
