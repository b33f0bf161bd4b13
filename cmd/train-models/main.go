// train-models fits the analytics models offline: one demand model per
// line found in the boarding history, plus the global travel-time model.
package main

import (
	"errors"
	"flag"
	"log"
	"sort"
	"strings"

	"github.com/QuanLionSoft/KonyaBusProject/internal/config"
	"github.com/QuanLionSoft/KonyaBusProject/internal/forecast"
	"github.com/QuanLionSoft/KonyaBusProject/internal/ingest"
	"github.com/QuanLionSoft/KonyaBusProject/internal/traveltime"
)

func main() {
	lines := flag.String("lines", "", "comma-separated line ids to train; default is every line in the data")
	skipTravel := flag.Bool("skip-traveltime", false, "skip training the travel time model")
	skipDemand := flag.Bool("skip-demand", false, "skip training the demand models")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if !*skipDemand {
		trainDemand(cfg, *lines)
	}
	if !*skipTravel {
		trainTravelTime(cfg)
	}
}

func trainDemand(cfg *config.Config, lineFlag string) {
	svc, err := forecast.NewService(cfg.DataDir, cfg.ModelDir)
	if err != nil {
		log.Fatalf("Failed to create forecast service: %v", err)
	}

	var lineIDs []string
	if lineFlag != "" {
		for _, id := range strings.Split(lineFlag, ",") {
			if id = strings.TrimSpace(id); id != "" {
				lineIDs = append(lineIDs, ingest.CanonicalLineID(id))
			}
		}
	} else {
		lineIDs, err = discoverLines(cfg.DataDir)
		if err != nil {
			log.Fatalf("Failed to discover lines: %v", err)
		}
	}

	trained, skipped := 0, 0
	for _, lineID := range lineIDs {
		_, err := svc.Train(lineID)
		if errors.Is(err, forecast.ErrInsufficientData) {
			skipped++
			continue
		}
		if err != nil {
			log.Printf("Warning: training line %s failed: %v", lineID, err)
			skipped++
			continue
		}
		trained++
	}
	log.Printf("Demand models: %d trained, %d skipped of %d lines", trained, skipped, len(lineIDs))
}

// discoverLines enumerates every canonical line id present in the
// boarding history.
func discoverLines(dataDir string) ([]string, error) {
	seen := make(map[string]bool)
	_, err := ingest.StreamBoardingEvents(dataDir, "", func(ev ingest.BoardingEvent) {
		seen[ev.LineID] = true
	})
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(seen))
	for id := range seen {
		lines = append(lines, id)
	}
	sort.Strings(lines)
	return lines, nil
}

func trainTravelTime(cfg *config.Config) {
	est, err := traveltime.NewEstimator(cfg.DataDir, cfg.ModelDir)
	if err != nil {
		log.Fatalf("Failed to create travel time estimator: %v", err)
	}
	if err := est.Train(); err != nil {
		log.Fatalf("Failed to train travel time model: %v", err)
	}
	log.Println("Travel time model trained")
}
