package repository

import "detectweb/internal/model"

// RunRepository defines the interface for detection run records.
type RunRepository interface {
	// Create operations
	Insert(run *model.Run) (int64, error)

	// Read operations
	GetByName(name string) (*model.Run, error)
	GetRecent(limit int) ([]model.Run, error)
	GetTotalCount() (int, error)
	Exists(name string) (bool, error)
}

// DetectionRepository defines the interface for per-run detection records.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []model.Detection) error

	// Read operations
	GetByRunID(runID int64) ([]model.Detection, error)
	GetAllLabels() ([]string, error)
}
