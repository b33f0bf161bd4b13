package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/QuanLionSoft/KonyaBusProject/internal/capacity"
	"github.com/QuanLionSoft/KonyaBusProject/internal/config"
	"github.com/QuanLionSoft/KonyaBusProject/internal/forecast"
	"github.com/QuanLionSoft/KonyaBusProject/internal/handlers"
	"github.com/QuanLionSoft/KonyaBusProject/internal/metrics"
	"github.com/QuanLionSoft/KonyaBusProject/internal/store"
	"github.com/QuanLionSoft/KonyaBusProject/internal/traveltime"
)

// collectorAdapter exposes the Prometheus collector through the small
// interfaces the handlers accept.
type collectorAdapter struct {
	c *metrics.Collector
}

func (a collectorAdapter) ForecastServedInc()   { a.c.ForecastsServed.Inc() }
func (a collectorAdapter) TravelPredictionInc() { a.c.TravelPredictions.Inc() }
func (a collectorAdapter) TrainingRunInc()      { a.c.TrainingRuns.Inc() }
func (a collectorAdapter) FallbackInc()         { a.c.TravelFallbacks.Inc() }

func (a collectorAdapter) RowsIngested(read int, skippedByReason map[string]int) {
	a.c.RowsRead.Add(float64(read))
	for reason, n := range skippedByReason {
		a.c.RowsSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

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
	if err := db.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	forecaster, err := forecast.NewService(cfg.DataDir, cfg.ModelDir)
	if err != nil {
		log.Fatalf("Failed to create forecast service: %v", err)
	}

	estimator, err := traveltime.NewEstimator(cfg.DataDir, cfg.ModelDir)
	if err != nil {
		log.Fatalf("Failed to create travel time estimator: %v", err)
	}
	if err := estimator.Load(); err != nil {
		if errors.Is(err, traveltime.ErrNotTrained) {
			log.Println("No travel time model on disk yet; run train-models to fit one")
		} else {
			log.Printf("Warning: could not load travel time model: %v", err)
		}
	}

	analyzer := &capacity.Analyzer{
		Schedule: db,
		Demand:   &capacity.FileDemand{DataDir: cfg.DataDir},
	}

	collector := metrics.NewCollector()
	adapter := collectorAdapter{c: collector}
	forecaster.SetMetrics(adapter)
	estimator.SetMetrics(adapter)

	lineHandler := handlers.NewLineHandler(db)
	forecastHandler := handlers.NewForecastHandler(forecaster, adapter)
	travelHandler := handlers.NewTravelTimeHandler(estimator, adapter)
	capacityHandler := handlers.NewCapacityHandler(analyzer)
	simHandler := handlers.NewSimulationHandler(db)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, req)
			collector.RequestDuration.Observe(time.Since(start).Seconds())
		})
	})

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		_, err := db.ListLines(ctx)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":    "error",
				"database":  "disconnected",
				"timestamp": time.Now().UTC(),
				"error":     err.Error(),
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "ok",
			"database":  "connected",
			"timestamp": time.Now().UTC(),
		})
	})

	r.Handle("/metrics", collector.Handler())

	r.Get("/api/lines", lineHandler.ListLines)
	r.Get("/api/lines/{lineId}", lineHandler.GetLine)
	r.Get("/api/lines/{lineId}/stops", lineHandler.GetLineStops)
	r.Get("/api/lines/{lineId}/route", lineHandler.GetLineRoute)
	r.Get("/api/lines/{lineId}/timetable", lineHandler.GetTimetable)
	r.Post("/api/lines/{lineId}/departures", lineHandler.CreateExtraDeparture)
	r.Delete("/api/departures/{id}", lineHandler.DeleteExtraDeparture)

	r.Get("/api/forecast/{lineId}", forecastHandler.GetForecast)
	r.Post("/api/forecast/{lineId}/retrain", forecastHandler.RetrainForecast)

	r.Get("/api/traveltime", travelHandler.GetTravelTime)
	r.Get("/api/capacity/{lineId}", capacityHandler.GetCapacity)
	r.Get("/api/simulation/{lineId}", simHandler.GetSimulation)

	// Ridership reports come from the PostgreSQL warehouse, mounted only
	// when one is configured.
	if cfg.DatabaseURL != "" {
		warehouse, err := store.NewWarehouse(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to reporting warehouse: %v", err)
		}
		defer warehouse.Close()

		ridershipHandler := handlers.NewRidershipHandler(warehouse)
		r.Get("/api/ridership/top", ridershipHandler.GetTopLines)
		r.Get("/api/ridership/{lineId}", ridershipHandler.GetLineHistory)
		log.Println("Reporting warehouse connected, ridership endpoints enabled")
	}

	log.Printf("API listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
