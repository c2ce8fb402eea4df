package dto

import "time"

const (
	EventTypeRun   = "run"
	EventTypeFrame = "frame"
)

// Event is broadcast to websocket viewers.
type Event struct {
	Type          string    `json:"type"`
	Run           string    `json:"run,omitempty"`
	ResultURL     string    `json:"result_url,omitempty"`
	NumDetections int       `json:"num_detections"`
	Timestamp     time.Time `json:"timestamp"`
}
