package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"detectweb/internal/config"
	"detectweb/internal/dto"
	"detectweb/internal/logger"
	"detectweb/internal/service/ai/yolo"
	"detectweb/internal/service/storage"
	"detectweb/internal/service/vision"

	"gocv.io/x/gocv"
)

var (
	ErrModelNotLoaded = errors.New("detection network not initialized")
	ErrForeignFrame   = errors.New("frame was not produced by this backend")
)

// letterbox fill, same grey the model was trained with
var padColor = gocv.NewScalar(114, 114, 114, 0)

var boxPalette = []color.RGBA{
	{R: 255, G: 56, B: 56},
	{R: 255, G: 157, B: 151},
	{R: 255, G: 112, B: 31},
	{R: 255, G: 178, B: 29},
	{R: 207, G: 210, B: 49},
	{R: 72, G: 249, B: 10},
}

// DetectorService runs a YOLO network through the OpenCV DNN module.
type DetectorService struct {
	net        gocv.Net
	classNames []string
	modelPath  string
	configPath string
	logger     *logger.Logger

	// gocv.Net keeps per-call state between SetInput and Forward.
	// mu also guards loaded, which is false before load and after Close.
	mu     sync.Mutex
	loaded bool
}

var _ vision.Detector = (*DetectorService)(nil)

// NewDetectorService loads the network once. A load failure is returned to the
// caller, which is expected to refuse to start.
func NewDetectorService(config *config.Config, logger *logger.Logger) (*DetectorService, error) {
	service := &DetectorService{
		classNames: config.ClassNames,
		modelPath:  config.ModelPath,
		configPath: config.ModelConfigPath,
		logger:     logger,
	}

	if err := service.initializeNet(); err != nil {
		return nil, err
	}

	return service, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	var net gocv.Net
	if s.configPath != "" {
		if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", s.configPath)
		}
		net = gocv.ReadNet(s.modelPath, s.configPath)
	} else {
		net = gocv.ReadNetFromONNX(s.modelPath)
	}

	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)

	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.loaded = true
	s.logger.Info("Loaded model from: %s", s.modelPath)
	return nil
}

// DetectImage reads the image at path, annotates it and saves it into outDir
// under the input's file name, together with a detections.json.
func (s *DetectorService) DetectImage(path string, params dto.DetectionParams, outDir string) (*dto.PredictResult, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("failed to read image %s", path)
	}
	defer img.Close()

	result, err := s.detect(img, params)
	if err != nil {
		return nil, err
	}

	if err := s.annotate(&img, result.Detections); err != nil {
		return nil, err
	}

	outPath := filepath.Join(outDir, filepath.Base(path))
	if ok := gocv.IMWrite(outPath, img); !ok {
		return nil, fmt.Errorf("failed to write annotated image %s", outPath)
	}

	meta, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode detections: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, storage.MetadataFile), meta, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", storage.MetadataFile, err)
	}

	return result, nil
}

// DetectFrame detects on a camera frame and returns an annotated clone.
func (s *DetectorService) DetectFrame(frame vision.Frame, params dto.DetectionParams) (*dto.PredictResult, vision.Frame, error) {
	mf, ok := frame.(*MatFrame)
	if !ok {
		return nil, nil, ErrForeignFrame
	}

	result, err := s.detect(mf.mat, params)
	if err != nil {
		return nil, nil, err
	}

	annotated := mf.mat.Clone()
	if err := s.annotate(&annotated, result.Detections); err != nil {
		annotated.Close()
		return nil, nil, err
	}

	return result, &MatFrame{mat: annotated}, nil
}

// detect letterboxes mat into a square, runs the network and decodes the head.
func (s *DetectorService) detect(mat gocv.Mat, params dto.DetectionParams) (*dto.PredictResult, error) {
	if params.InputSize <= 0 {
		return nil, fmt.Errorf("invalid input size %d", params.InputSize)
	}

	rows, cols := mat.Rows(), mat.Cols()
	square, err := letterbox(mat)
	if err != nil {
		return nil, err
	}
	defer square.Close()
	maxDim := square.Rows()

	blob := gocv.BlobFromImage(square, 1.0/255.0, image.Pt(params.InputSize, params.InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	output, err := s.forward(blob)
	if err != nil {
		return nil, err
	}
	defer output.Close()

	// Process detections with output: [ batch, 4 + classes, anchors ]
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output dimensions %v", dims)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	scale := float32(maxDim) / float32(params.InputSize)
	candidates, err := yolo.Decode(data, dims[1], dims[2], params.Confidence, scale)
	if err != nil {
		return nil, err
	}

	var kept []yolo.Candidate
	if len(candidates) > 0 {
		boxes, scores := yolo.NMSInputs(candidates)
		indices := gocv.NMSBoxes(boxes, scores, params.Confidence, params.IoU)
		kept = yolo.Select(candidates, indices, params.MaxDetections)
	}

	result := &dto.PredictResult{Width: cols, Height: rows}
	for _, c := range kept {
		box := yolo.Clip(c.Box, cols, rows)
		result.Detections = append(result.Detections, dto.DetectionResult{
			Label:      s.classLabel(c.ClassID),
			ClassID:    c.ClassID,
			Confidence: float64(c.Score),
			X:          box.Min.X,
			Y:          box.Min.Y,
			Width:      box.Dx(),
			Height:     box.Dy(),
		})
	}

	return result, nil
}

// forward runs the network on blob. It fails once the service has been closed.
func (s *DetectorService) forward(blob gocv.Mat) (gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded || s.net.Empty() {
		return gocv.Mat{}, ErrModelNotLoaded
	}
	s.net.SetInput(blob, "")
	return s.net.Forward(""), nil
}

// letterbox copies mat into the top-left corner of a grey square, converting
// grey and BGRA input to BGR first.
func letterbox(mat gocv.Mat) (gocv.Mat, error) {
	src := mat
	switch mat.Channels() {
	case 3:
	case 1, 4:
		code := gocv.ColorGrayToBGR
		if mat.Channels() == 4 {
			code = gocv.ColorBGRAToBGR
		}
		converted := gocv.NewMat()
		defer converted.Close()
		if err := gocv.CvtColor(mat, &converted, code); err != nil {
			return gocv.Mat{}, fmt.Errorf("failed to convert %d-channel image: %w", mat.Channels(), err)
		}
		src = converted
	default:
		return gocv.Mat{}, fmt.Errorf("unsupported image with %d channels", mat.Channels())
	}

	rows, cols := src.Rows(), src.Cols()
	maxDim := max(rows, cols)

	square := gocv.NewMatWithSizeFromScalar(padColor, maxDim, maxDim, gocv.MatTypeCV8UC3)
	roi := square.Region(image.Rect(0, 0, cols, rows))
	defer roi.Close()
	if err := src.CopyTo(&roi); err != nil {
		square.Close()
		return gocv.Mat{}, fmt.Errorf("failed to letterbox image: %w", err)
	}
	return square, nil
}

// annotate draws one labelled box per detection.
func (s *DetectorService) annotate(mat *gocv.Mat, detections []dto.DetectionResult) error {
	for _, detection := range detections {
		c := boxPalette[detection.ClassID%len(boxPalette)]
		rect := image.Rect(detection.X, detection.Y, detection.X+detection.Width, detection.Y+detection.Height)
		if err := gocv.Rectangle(mat, rect, c, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s %.2f", detection.Label, detection.Confidence)
		pt := image.Pt(detection.X, max(detection.Y-5, 12))
		if err := gocv.PutText(mat, label, pt, gocv.FontHersheySimplex, 0.5, c, 1); err != nil {
			return fmt.Errorf("failed to draw text: %w", err)
		}
	}
	return nil
}

// classLabel maps model class IDs to configured names.
func (s *DetectorService) classLabel(classID int) string {
	if classID >= 0 && classID < len(s.classNames) {
		return strings.TrimSpace(s.classNames[classID])
	}
	return fmt.Sprintf("class_%d", classID)
}

// Close releases the network. Later detections fail with ErrModelNotLoaded.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil
	}
	s.loaded = false
	return s.net.Close()
}
