package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"detectweb/internal/config"
	"detectweb/internal/dto"
	"detectweb/internal/logger"
	"detectweb/internal/model"
	"detectweb/internal/repository/sqlite"
	"detectweb/internal/service"
	"detectweb/internal/service/storage"
)

// migrate records run directories found under the results directory that are
// not yet in the database.
func main() {
	cfg := config.Load()
	staticDir := flag.String("static", cfg.StaticDirectory, "Static directory containing results/")
	dbPath := flag.String("db", cfg.DBPath, "Database path")
	flag.Parse()

	cfg.StaticDirectory = *staticDir
	cfg.DBPath = *dbPath

	logs, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to open logs: %v", err)
	}
	defer logs.Close()

	storageService := storage.NewStorageService(cfg, logs)
	fmt.Printf("Migrating runs from %s to database %s\n", storageService.ResultDirectory(), cfg.DBPath)

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	runRepo := sqlite.NewRunRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)

	names, err := storageService.ListRuns()
	if err != nil {
		log.Fatalf("Failed to read results directory: %v", err)
	}

	migrated, skipped := 0, 0
	for _, name := range names {
		exists, err := runRepo.Exists(name)
		if err != nil {
			log.Fatalf("Failed to query run %s: %v", name, err)
		}
		if exists {
			continue
		}

		run, detections, err := loadRun(cfg, storageService.RunDirectory(name), name)
		if err != nil {
			log.Printf("Skipping %s: %v", name, err)
			skipped++
			continue
		}

		if err := service.RecordRun(runRepo, detectionRepo, run, detections); err != nil {
			log.Fatalf("Failed to insert run %s: %v", name, err)
		}
		migrated++
	}

	fmt.Printf("Migrated %d run(s)\n", migrated)
	if skipped > 0 {
		fmt.Printf("Skipped %d run(s) (missing image or unreadable name)\n", skipped)
	}

	total, err := runRepo.GetTotalCount()
	if err == nil {
		fmt.Printf("Total runs in database: %d\n", total)
	}
}

// loadRun rebuilds a run from its directory. detections.json is optional; runs
// written before it existed are recorded with zero detections.
func loadRun(cfg *config.Config, dir, name string) (*model.Run, []dto.DetectionResult, error) {
	created, err := storage.ParseRunTime(name)
	if err != nil {
		return nil, nil, err
	}

	image, err := storage.FindOutputImage(dir)
	if err != nil {
		return nil, nil, err
	}

	var result dto.PredictResult
	meta, err := os.ReadFile(filepath.Join(dir, storage.MetadataFile))
	switch {
	case err == nil:
		if err := json.Unmarshal(meta, &result); err != nil {
			return nil, nil, fmt.Errorf("invalid %s: %w", storage.MetadataFile, err)
		}
	case !os.IsNotExist(err):
		return nil, nil, err
	}

	run := &model.Run{
		Name:          name,
		InputPath:     filepath.Join(cfg.UploadDirectory(), filepath.Base(image)),
		OutputPath:    image,
		NumDetections: result.Count(),
		CreatedAt:     created,
	}
	return run, result.Detections, nil
}
