package ai

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"detectweb/internal/service/vision"

	"gocv.io/x/gocv"
)

// ErrFrameUnavailable is returned when the device stops delivering frames.
var ErrFrameUnavailable = errors.New("camera returned no frame")

// MatFrame adapts a gocv.Mat to vision.Frame.
type MatFrame struct {
	mat gocv.Mat
}

var _ vision.Frame = (*MatFrame)(nil)

// PutText draws anti-aliased Hershey simplex text.
func (f *MatFrame) PutText(text string, org image.Point, c color.RGBA, style vision.TextStyle) error {
	return gocv.PutTextWithParams(&f.mat, text, org, gocv.FontHersheySimplex, style.Scale, c, style.Thickness, gocv.LineAA, false)
}

// EncodeJPEG returns a copy of the JPEG-encoded frame.
func (f *MatFrame) EncodeJPEG() ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func (f *MatFrame) Close() error {
	return f.mat.Close()
}

// VideoCamera reads frames from a local capture device.
type VideoCamera struct {
	capture *gocv.VideoCapture
	index   int
}

var _ vision.Camera = (*VideoCamera)(nil)

// OpenCamera opens the capture device with the given index. It satisfies vision.CameraOpener.
func OpenCamera(index int) (vision.Camera, error) {
	capture, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("could not open webcam %d: %w", index, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("could not open webcam %d", index)
	}
	return &VideoCamera{capture: capture, index: index}, nil
}

// Read grabs the next frame.
func (c *VideoCamera) Read() (vision.Frame, error) {
	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("webcam %d: %w", c.index, ErrFrameUnavailable)
	}
	return &MatFrame{mat: mat}, nil
}

// Close releases the device.
func (c *VideoCamera) Close() error {
	return c.capture.Close()
}
