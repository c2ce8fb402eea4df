package model

import "time"

// Run represents a recorded detection run.
type Run struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	InputPath     string    `json:"input_path"`
	OutputPath    string    `json:"output_path"`
	NumDetections int       `json:"num_detections"`
	CreatedAt     time.Time `json:"created_at"`
}
