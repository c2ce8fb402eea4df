// Package visiontest provides in-memory vision implementations for tests.
package visiontest

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"detectweb/internal/dto"
	"detectweb/internal/service/storage"
	"detectweb/internal/service/vision"
)

var ErrNoFrame = errors.New("visiontest: no more frames")

// Frame records the captions drawn on it.
type Frame struct {
	ID         int
	FailEncode bool

	mu       sync.Mutex
	captions []string
	colors   []color.RGBA
	closed   atomic.Bool
}

func (f *Frame) PutText(text string, org image.Point, c color.RGBA, style vision.TextStyle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captions = append(f.captions, text)
	f.colors = append(f.colors, c)
	return nil
}

func (f *Frame) EncodeJPEG() ([]byte, error) {
	if f.FailEncode {
		return nil, fmt.Errorf("visiontest: encode failed for frame %d", f.ID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return []byte(fmt.Sprintf("frame-%d|%v", f.ID, f.captions)), nil
}

func (f *Frame) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *Frame) Closed() bool { return f.closed.Load() }

func (f *Frame) Captions() ([]string, []color.RGBA) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.captions...), append([]color.RGBA(nil), f.colors...)
}

// Camera serves Frames in order, then fails. With Endless set it never runs out.
// Create it with NewCamera.
type Camera struct {
	Frames  []*Frame
	Endless bool

	mu       sync.Mutex
	next     int
	opened   atomic.Int32
	closed   atomic.Bool
	released chan struct{}
}

func NewCamera(frames ...*Frame) *Camera {
	return &Camera{Frames: frames, released: make(chan struct{})}
}

func (c *Camera) Read() (vision.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Endless {
		c.next++
		return &Frame{ID: c.next}, nil
	}
	if c.next >= len(c.Frames) {
		return nil, ErrNoFrame
	}
	f := c.Frames[c.next]
	c.next++
	return f, nil
}

func (c *Camera) Close() error {
	if c.closed.CompareAndSwap(false, true) && c.released != nil {
		close(c.released)
	}
	return nil
}

// Closed reports whether the device has been released.
func (c *Camera) Closed() bool { return c.closed.Load() }

// Released is closed when the device is released.
func (c *Camera) Released() <-chan struct{} { return c.released }

// Opens reports how many times the camera was opened.
func (c *Camera) Opens() int { return int(c.opened.Load()) }

// Opener returns a CameraOpener handing out c.
func (c *Camera) Opener() vision.CameraOpener {
	return func(index int) (vision.Camera, error) {
		c.opened.Add(1)
		return c, nil
	}
}

// FailingOpener never opens a device.
func FailingOpener(err error) vision.CameraOpener {
	return func(index int) (vision.Camera, error) {
		return nil, err
	}
}

// Detector reports Count detections for every input. DetectImage copies the
// input into outDir unless SkipOutput is set.
type Detector struct {
	Count      int
	Err        error
	SkipOutput bool
	// PanicOnFrame makes DetectFrame panic, for producer recovery tests.
	PanicOnFrame bool

	mu         sync.Mutex
	lastParams dto.DetectionParams
	imageCalls int
	frameCalls int
}

var _ vision.Detector = (*Detector)(nil)

func (d *Detector) result() *dto.PredictResult {
	r := &dto.PredictResult{Width: 640, Height: 480}
	for i := 0; i < d.Count; i++ {
		r.Detections = append(r.Detections, dto.DetectionResult{
			Label:      "pothole",
			Confidence: 0.9 - float64(i)*0.01,
			X:          10 * i,
			Y:          10 * i,
			Width:      20,
			Height:     20,
		})
	}
	return r
}

func (d *Detector) DetectImage(path string, params dto.DetectionParams, outDir string) (*dto.PredictResult, error) {
	d.mu.Lock()
	d.lastParams = params
	d.imageCalls++
	d.mu.Unlock()

	if d.Err != nil {
		return nil, d.Err
	}
	result := d.result()
	if d.SkipOutput {
		return result, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(outDir, filepath.Base(path)), data, 0644); err != nil {
		return nil, err
	}
	meta, _ := json.Marshal(result)
	if err := os.WriteFile(filepath.Join(outDir, storage.MetadataFile), meta, 0644); err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Detector) DetectFrame(frame vision.Frame, params dto.DetectionParams) (*dto.PredictResult, vision.Frame, error) {
	d.mu.Lock()
	d.lastParams = params
	d.frameCalls++
	d.mu.Unlock()

	if d.PanicOnFrame {
		panic("visiontest: detector panic")
	}
	if d.Err != nil {
		return nil, nil, d.Err
	}

	annotated := &Frame{}
	if src, ok := frame.(*Frame); ok {
		annotated.ID = src.ID
		annotated.FailEncode = src.FailEncode
	}
	return d.result(), annotated, nil
}

func (d *Detector) Close() error { return nil }

// LastParams returns the parameters of the most recent call.
func (d *Detector) LastParams() dto.DetectionParams {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastParams
}

// Calls returns how many image and frame detections were requested.
func (d *Detector) Calls() (images, frames int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.imageCalls, d.frameCalls
}
