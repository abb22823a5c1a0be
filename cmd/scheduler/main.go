package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/confsched/scheduler-api/internal/genetic"
	"github.com/confsched/scheduler-api/internal/models"
	"github.com/confsched/scheduler-api/internal/rating"
	"github.com/confsched/scheduler-api/internal/report"
	"github.com/confsched/scheduler-api/pkg/config"
)

// catalogFile is the JSON shape accepted by the -catalog flag.
type catalogFile struct {
	Timeslots int              `json:"timeslots"`
	Sessions  []models.Session `json:"sessions"`
	Rooms     []models.Room    `json:"rooms"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var (
		catalogPath = flag.String("catalog", "", "path to the catalog JSON file (required)")
		outPath     = flag.String("out", "schedule.md", "path of the markdown report to write")
		population  = flag.Int("population", cfg.Genetic.PopulationSize, "population size")
		elite       = flag.Int("elite", cfg.Genetic.EliteSize, "schedules carried over unchanged per generation")
		mutation    = flag.Float64("mutation", cfg.Genetic.MutationRate, "per-cell mutation probability")
		generations = flag.Int("generations", cfg.Genetic.Generations, "generation budget")
		workers     = flag.Int("workers", cfg.Genetic.Workers, "worker goroutines")
		seed        = flag.Int64("seed", cfg.Genetic.Seed, "random seed")
	)
	flag.Parse()

	if *catalogPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	logr, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	catalog, err := loadCatalog(*catalogPath)
	if err != nil {
		logr.Fatal("failed to load catalog", zap.Error(err))
	}

	oracle := rating.NewCatalogOracle(catalog, rating.DefaultWeights)
	engine := genetic.NewEngine(catalog, oracle, catalog.Timeslots, len(catalog.Rooms), logr)

	result, err := engine.Run(context.Background(), genetic.Options{
		PopulationSize: *population,
		EliteSize:      *elite,
		MutationRate:   *mutation,
		Generations:    *generations,
		Workers:        *workers,
		Seed:           *seed,
	})
	if err != nil {
		logr.Fatal("optimization failed", zap.Error(err))
	}

	if err := report.NewWriter(catalog).WriteFile(*outPath, result.Best, result.BestRating); err != nil {
		logr.Fatal("failed to write report", zap.Error(err))
	}

	logr.Info("schedule written",
		zap.String("path", *outPath),
		zap.String("stop_reason", string(result.Reason)),
		zap.Int("generations", result.Generations),
		zap.Float64("best_rating", result.BestRating),
	)
}

func loadCatalog(path string) (*models.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return models.NewCatalog(file.Sessions, file.Rooms, file.Timeslots)
}
