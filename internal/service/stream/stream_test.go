package stream

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"detectweb/internal/config"
	"detectweb/internal/dto"
	"detectweb/internal/logger"
	"detectweb/internal/service/vision/visiontest"

	"github.com/stretchr/testify/require"
)

var testParams = dto.DetectionParams{Confidence: 0.3, IoU: 0.6, MaxDetections: 20, InputSize: 640}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&config.Config{LogDirectory: filepath.Join(t.TempDir(), "logs")})
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func collect(t *testing.T, s *Stream) [][]byte {
	t.Helper()
	var frames [][]byte
	timeout := time.After(5 * time.Second)
	for {
		select {
		case f, ok := <-s.C:
			if !ok {
				return frames
			}
			frames = append(frames, f)
		case <-timeout:
			t.Fatal("stream did not end")
		}
	}
}

func TestCaption(t *testing.T) {
	text, c := Caption(3, "Potholes")
	require.Equal(t, "Potholes detected: 3", text)
	require.Equal(t, uint8(255), c.G)
	require.Zero(t, c.R)

	text, c = Caption(0, "Potholes")
	require.Equal(t, "No potholes detected", text)
	require.Equal(t, uint8(255), c.R)
	require.Zero(t, c.G)
}

func TestProducer_CameraOpenFailureYieldsNoFrames(t *testing.T) {
	p := NewProducer(visiontest.FailingOpener(errors.New("no device")), &visiontest.Detector{}, Options{Params: testParams}, testLogger(t))

	s := p.Start(context.Background())
	require.Empty(t, collect(t, s))
	<-s.Done()
}

func TestProducer_EmitsFramesUntilReadFails(t *testing.T) {
	frames := []*visiontest.Frame{{ID: 1}, {ID: 2}, {ID: 3}}
	camera := visiontest.NewCamera(frames...)
	det := &visiontest.Detector{Count: 2}

	var mu sync.Mutex
	var counts []int
	p := NewProducer(camera.Opener(), det, Options{
		CameraIndex: 0,
		Params:      testParams,
		Noun:        "Potholes",
		Buffer:      1,
		OnFrame: func(n int) {
			mu.Lock()
			counts = append(counts, n)
			mu.Unlock()
		},
	}, testLogger(t))

	s := p.Start(context.Background())
	got := collect(t, s)
	<-s.Done()

	require.Len(t, got, 3)
	require.Equal(t, "frame-1|[Potholes detected: 2]", string(got[0]))
	require.True(t, camera.Closed())
	require.Equal(t, testParams, det.LastParams())
	for _, f := range frames {
		require.True(t, f.Closed())
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, counts, 3)
}

func TestProducer_SkipsFramesThatFailToEncode(t *testing.T) {
	camera := visiontest.NewCamera(&visiontest.Frame{ID: 1}, &visiontest.Frame{ID: 2, FailEncode: true}, &visiontest.Frame{ID: 3})
	p := NewProducer(camera.Opener(), &visiontest.Detector{}, Options{Params: testParams, Noun: "Potholes"}, testLogger(t))

	s := p.Start(context.Background())
	got := collect(t, s)

	require.Len(t, got, 2)
	require.Equal(t, "frame-1|[No potholes detected]", string(got[0]))
	require.Equal(t, "frame-3|[No potholes detected]", string(got[1]))
}

func TestProducer_CancelReleasesCamera(t *testing.T) {
	camera := visiontest.NewCamera()
	camera.Endless = true
	p := NewProducer(camera.Opener(), &visiontest.Detector{Count: 1}, Options{Params: testParams, Noun: "Potholes", Buffer: 2}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	s := p.Start(ctx)

	for i := 0; i < 3; i++ {
		select {
		case <-s.C:
		case <-time.After(5 * time.Second):
			t.Fatal("no frame received")
		}
	}

	cancel()
	select {
	case <-camera.Released():
	case <-time.After(5 * time.Second):
		t.Fatal("camera not released after cancel")
	}
	<-s.Done()
}

func TestProducer_CloseWaitsForRelease(t *testing.T) {
	camera := visiontest.NewCamera()
	camera.Endless = true
	p := NewProducer(camera.Opener(), &visiontest.Detector{}, Options{Params: testParams}, testLogger(t))

	s := p.Start(context.Background())
	<-s.C
	s.Close()

	require.True(t, camera.Closed())
	require.Equal(t, 1, camera.Opens())
}

func TestProducer_PanicReleasesCamera(t *testing.T) {
	camera := visiontest.NewCamera(&visiontest.Frame{ID: 1})
	p := NewProducer(camera.Opener(), &visiontest.Detector{PanicOnFrame: true}, Options{Params: testParams}, testLogger(t))

	s := p.Start(context.Background())
	require.Empty(t, collect(t, s))
	<-s.Done()
	require.True(t, camera.Closed())
}
