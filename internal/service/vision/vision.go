// Package vision declares the seams between the web layer and the inference backend.
// Nothing here depends on OpenCV, so handlers and the stream producer can be tested with fakes.
package vision

import (
	"image"
	"image/color"

	"detectweb/internal/dto"
)

// TextStyle controls caption rendering.
type TextStyle struct {
	Scale     float64
	Thickness int
}

// Frame is one in-memory image owned by a single stream iteration.
type Frame interface {
	// PutText draws an anti-aliased caption with its baseline starting at org.
	PutText(text string, org image.Point, c color.RGBA, style TextStyle) error
	// EncodeJPEG returns the frame as JPEG bytes.
	EncodeJPEG() ([]byte, error)
	Close() error
}

// Detector wraps a single loaded model instance.
type Detector interface {
	// DetectImage runs the model on the image at path, writes the annotated image
	// and its detections.json into the already created outDir and returns the detections.
	DetectImage(path string, params dto.DetectionParams, outDir string) (*dto.PredictResult, error)
	// DetectFrame runs the model on frame without touching disk and returns the
	// detections together with an annotated copy owned by the caller.
	DetectFrame(frame Frame, params dto.DetectionParams) (*dto.PredictResult, Frame, error)
	Close() error
}

// Camera is an opened capture device.
type Camera interface {
	// Read grabs the next frame. The caller closes it.
	Read() (Frame, error)
	Close() error
}

// CameraOpener opens the capture device with the given index.
type CameraOpener func(index int) (Camera, error)
