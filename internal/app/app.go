package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"detectweb/internal/config"
	"detectweb/internal/logger"
	"detectweb/internal/repository/sqlite"
	"detectweb/internal/route"
	"detectweb/internal/service"
	"detectweb/internal/service/ai"
	"detectweb/internal/service/storage"
	"detectweb/internal/service/websocket"
	"detectweb/internal/view"
)

type App struct {
	config          *config.Config
	logger          *logger.Logger
	db              *sqlite.DB
	detectorService *ai.DetectorService
	storageService  *storage.StorageService
	hubService      *websocket.HubService
	manager         *service.Manager
	server          *http.Server
}

// NewApp builds every service. It fails if the model cannot be loaded, so the
// server never starts without a detector.
func NewApp(cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	detector, err := ai.NewDetectorService(cfg, log)
	if err != nil {
		log.Error("Model path not found or unreadable: %v", err)
		log.Close()
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	storageService := storage.NewStorageService(cfg, log)
	if err := storageService.EnsureDirectories(); err != nil {
		detector.Close()
		log.Close()
		return nil, err
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		detector.Close()
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	renderer, err := view.New()
	if err != nil {
		db.Close()
		detector.Close()
		log.Close()
		return nil, err
	}

	hub := websocket.NewHubService(log)
	manager := service.NewManager(cfg, detector, ai.OpenCamera, storageService, hub,
		sqlite.NewRunRepository(db), sqlite.NewDetectionRepository(db), log)

	server := route.NewServer(fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.Port), route.SetupRoutes(manager, renderer, cfg, log))

	return &App{
		config:          cfg,
		logger:          log,
		db:              db,
		detectorService: detector,
		storageService:  storageService,
		hubService:      hub,
		manager:         manager,
		server:          server,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down and releases resources.
func (a *App) Run(ctx context.Context) error {
	go a.hubService.Run()
	defer a.close()

	a.logger.Info("Detection server listening on http://%s", a.server.Addr)
	a.logger.Info("Model: %s (conf %.2f, iou %.2f, max %d, size %d)", a.config.ModelPath,
		a.config.Confidence, a.config.IoU, a.config.MaxDetections, a.config.ImageSize)
	a.logger.Info("Static files: %s", a.config.StaticDirectory)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown cancels request contexts, which stops the camera producers.
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	// The detector is closed after this, so every producer must be gone first.
	if err := a.manager.WaitStreams(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) close() {
	a.hubService.Stop()
	if err := a.db.Close(); err != nil {
		a.logger.Warning("Error closing database: %v", err)
	}
	if err := a.detectorService.Close(); err != nil {
		a.logger.Warning("Error releasing model: %v", err)
	}
	a.logger.Close()
}
