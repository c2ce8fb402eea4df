package dto

import (
	"time"

	"detectweb/internal/model"
)

// RunInfo is the outcome of one upload, as rendered on the result page.
type RunInfo struct {
	Name          string    `json:"name"`
	InputPath     string    `json:"input_path"`
	OutputDir     string    `json:"output_dir"`
	OutputImage   string    `json:"output_image"`
	ResultURL     string    `json:"result_url"`
	NumDetections int       `json:"num_detections"`
	CreatedAt     time.Time `json:"created_at"`
}

// RunDetails is one recorded run together with its detections.
type RunDetails struct {
	Run        model.Run         `json:"run"`
	Detections []model.Detection `json:"detections"`
}
