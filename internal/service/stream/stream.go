// Package stream turns a camera into a bounded channel of annotated JPEG frames.
package stream

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"detectweb/internal/dto"
	"detectweb/internal/logger"
	"detectweb/internal/service/vision"
)

// Boundary separates parts of the multipart/x-mixed-replace response.
const Boundary = "frame"

var (
	CaptionOrigin = image.Pt(20, 40)
	CaptionStyle  = vision.TextStyle{Scale: 1.2, Thickness: 3}

	captionFound = color.RGBA{G: 255, A: 255}
	captionNone  = color.RGBA{R: 255, A: 255}
)

// Caption returns the status line drawn on every frame and its color:
// green when something was detected, red otherwise.
func Caption(count int, noun string) (string, color.RGBA) {
	if count > 0 {
		return fmt.Sprintf("%s detected: %d", noun, count), captionFound
	}
	return fmt.Sprintf("No %s detected", strings.ToLower(noun)), captionNone
}

type Options struct {
	CameraIndex int
	Params      dto.DetectionParams
	Noun        string
	Buffer      int
	// OnFrame, if set, is called with the detection count of every emitted frame.
	OnFrame func(count int)
}

// Producer reads, detects, captions and encodes camera frames.
type Producer struct {
	open     vision.CameraOpener
	detector vision.Detector
	opts     Options
	logger   *logger.Logger
}

func NewProducer(open vision.CameraOpener, detector vision.Detector, opts Options, logger *logger.Logger) *Producer {
	if opts.Buffer < 1 {
		opts.Buffer = 1
	}
	return &Producer{
		open:     open,
		detector: detector,
		opts:     opts,
		logger:   logger,
	}
}

// Stream is one running producer. C is closed when the producer exits.
type Stream struct {
	C      <-chan []byte
	cancel context.CancelFunc
	done   chan struct{}
}

// Close stops the producer and waits until the camera has been released.
func (s *Stream) Close() {
	s.cancel()
	<-s.done
}

// Done is closed once the camera has been released.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Start opens the camera in a new goroutine. Cancelling ctx, or calling Close,
// ends the loop at its next iteration boundary.
func (p *Producer) Start(ctx context.Context) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan []byte, p.opts.Buffer)
	s := &Stream{C: out, cancel: cancel, done: make(chan struct{})}

	go p.run(ctx, out, s.done)
	return s
}

func (p *Producer) run(ctx context.Context, out chan<- []byte, done chan<- struct{}) {
	defer close(done)
	defer close(out)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Stream producer panic: %v", r)
		}
	}()

	camera, err := p.open(p.opts.CameraIndex)
	if err != nil {
		p.logger.Error("Could not open webcam: %v", err)
		return
	}
	defer func() {
		if err := camera.Close(); err != nil {
			p.logger.Warning("Error releasing webcam %d: %v", p.opts.CameraIndex, err)
		}
		p.logger.Info("Webcam %d released", p.opts.CameraIndex)
	}()

	p.logger.Info("Streaming from webcam %d", p.opts.CameraIndex)
	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := camera.Read()
		if err != nil {
			p.logger.Warning("Stopping stream: %v", err)
			return
		}

		data, count, err := p.process(frame)
		frame.Close()
		if err != nil {
			p.logger.Warning("Dropping frame: %v", err)
			continue
		}

		select {
		case out <- data:
		case <-ctx.Done():
			return
		}

		if p.opts.OnFrame != nil {
			p.opts.OnFrame(count)
		}
	}
}

// process runs detection on one frame and returns the captioned JPEG.
func (p *Producer) process(frame vision.Frame) ([]byte, int, error) {
	result, annotated, err := p.detector.DetectFrame(frame, p.opts.Params)
	if err != nil {
		return nil, 0, fmt.Errorf("detection failed: %w", err)
	}
	defer annotated.Close()

	count := result.Count()
	text, c := Caption(count, p.opts.Noun)
	if err := annotated.PutText(text, CaptionOrigin, c, CaptionStyle); err != nil {
		return nil, 0, fmt.Errorf("caption failed: %w", err)
	}

	data, err := annotated.EncodeJPEG()
	if err != nil {
		return nil, 0, err
	}
	return data, count, nil
}
