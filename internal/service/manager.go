package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"detectweb/internal/config"
	"detectweb/internal/dto"
	"detectweb/internal/logger"
	"detectweb/internal/model"
	"detectweb/internal/repository"
	"detectweb/internal/service/storage"
	"detectweb/internal/service/stream"
	"detectweb/internal/service/vision"
	"detectweb/internal/service/websocket"
)

// ErrDetectionFailed wraps any failure of the detector itself during an upload.
var ErrDetectionFailed = errors.New("detection failed")

// Manager ties uploads and the live stream to the single shared detector.
type Manager struct {
	detector         vision.Detector
	storageService   *storage.StorageService
	websocketService *websocket.HubService
	runRepo          repository.RunRepository
	detectionRepo    repository.DetectionRepository
	producer         *stream.Producer
	params           dto.DetectionParams
	logger           *logger.Logger
	now              func() time.Time

	streams sync.WaitGroup
}

// NewManager wires the services together. The repositories and the hub may be nil.
func NewManager(cfg *config.Config, detector vision.Detector, openCamera vision.CameraOpener,
	storageService *storage.StorageService, websocketService *websocket.HubService,
	runRepo repository.RunRepository, detectionRepo repository.DetectionRepository, logger *logger.Logger) *Manager {
	params := ParamsFromConfig(cfg)

	manager := &Manager{
		detector:         detector,
		storageService:   storageService,
		websocketService: websocketService,
		runRepo:          runRepo,
		detectionRepo:    detectionRepo,
		params:           params,
		logger:           logger,
		now:              time.Now,
	}

	manager.producer = stream.NewProducer(openCamera, detector, stream.Options{
		CameraIndex: cfg.CameraIndex,
		Params:      params,
		Noun:        cfg.TargetNoun,
		Buffer:      cfg.StreamBuffer,
		OnFrame:     manager.publishFrame,
	}, logger)

	return manager
}

// ParamsFromConfig builds the fixed inference parameters.
func ParamsFromConfig(cfg *config.Config) dto.DetectionParams {
	return dto.DetectionParams{
		Confidence:    float32(cfg.Confidence),
		IoU:           float32(cfg.IoU),
		MaxDetections: cfg.MaxDetections,
		InputSize:     cfg.ImageSize,
	}
}

// SetClock replaces the time source used for run names and cache busting.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

func (m *Manager) Params() dto.DetectionParams {
	return m.params
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}

// ProcessUpload saves the upload, runs detection into a fresh run directory and
// returns what the result page needs.
func (m *Manager) ProcessUpload(filename string, content io.Reader) (*dto.RunInfo, error) {
	inPath, err := m.storageService.SaveUpload(filename, content)
	if err != nil {
		return nil, err
	}

	created := m.now()
	name, dir, err := m.storageService.CreateRun(created)
	if err != nil {
		return nil, err
	}

	result, err := m.detector.DetectImage(inPath, m.params, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetectionFailed, err)
	}

	outImage, err := storage.FindOutputImage(dir)
	if err != nil {
		return nil, err
	}

	info := &dto.RunInfo{
		Name:          name,
		InputPath:     inPath,
		OutputDir:     dir,
		OutputImage:   outImage,
		ResultURL:     storage.ResultURL(name, filepath.Base(outImage), m.now()),
		NumDetections: result.Count(),
		CreatedAt:     created,
	}
	m.logger.Info("Run %s: %d detection(s) in %s", name, info.NumDetections, filepath.Base(inPath))

	if m.runRepo != nil {
		run := &model.Run{
			Name:          name,
			InputPath:     inPath,
			OutputPath:    outImage,
			NumDetections: info.NumDetections,
			CreatedAt:     created,
		}
		var detections []dto.DetectionResult
		if result != nil {
			detections = result.Detections
		}
		if err := RecordRun(m.runRepo, m.detectionRepo, run, detections); err != nil {
			m.logger.Error("Error saving run %s to database: %v", name, err)
		}
	}

	if m.websocketService != nil {
		m.websocketService.Publish(dto.Event{
			Type:          dto.EventTypeRun,
			Run:           name,
			ResultURL:     info.ResultURL,
			NumDetections: info.NumDetections,
		})
	}

	return info, nil
}

// OpenStream starts the camera producer for one viewer.
func (m *Manager) OpenStream(ctx context.Context) *stream.Stream {
	m.streams.Add(1)
	s := m.producer.Start(ctx)
	go func() {
		<-s.Done()
		m.streams.Done()
	}()
	return s
}

// WaitStreams blocks until every opened stream has released its camera, or ctx ends.
// The detector must not be closed before this returns nil.
func (m *Manager) WaitStreams(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.streams.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("streams still open: %w", ctx.Err())
	}
}

func (m *Manager) publishFrame(count int) {
	if m.websocketService == nil {
		return
	}
	m.websocketService.Publish(dto.Event{Type: dto.EventTypeFrame, NumDetections: count})
}

// RecentRuns lists recorded runs, newest first.
func (m *Manager) RecentRuns(limit int) ([]model.Run, error) {
	if m.runRepo == nil {
		return nil, nil
	}
	return m.runRepo.GetRecent(limit)
}

// GetRun returns a recorded run with its detections, or nil when unknown.
func (m *Manager) GetRun(name string) (*model.Run, []model.Detection, error) {
	if m.runRepo == nil {
		return nil, nil, nil
	}
	run, err := m.runRepo.GetByName(name)
	if err != nil || run == nil {
		return nil, nil, err
	}
	if m.detectionRepo == nil {
		return run, nil, nil
	}
	detections, err := m.detectionRepo.GetByRunID(run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, detections, nil
}

// RecordRun stores a run and its detections.
func RecordRun(runRepo repository.RunRepository, detectionRepo repository.DetectionRepository,
	run *model.Run, detections []dto.DetectionResult) error {
	runID, err := runRepo.Insert(run)
	if err != nil {
		return err
	}
	run.ID = runID

	if detectionRepo == nil || len(detections) == 0 {
		return nil
	}

	records := make([]model.Detection, 0, len(detections))
	for _, det := range detections {
		records = append(records, model.Detection{
			RunID:      runID,
			Label:      det.Label,
			ClassID:    det.ClassID,
			X:          det.X,
			Y:          det.Y,
			Width:      det.Width,
			Height:     det.Height,
			Confidence: det.Confidence,
		})
	}
	return detectionRepo.InsertBatch(records)
}
