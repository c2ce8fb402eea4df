package dto

// DetectionParams is the fixed parameter set passed to every inference call.
type DetectionParams struct {
	Confidence    float32
	IoU           float32
	MaxDetections int
	InputSize     int
}

type DetectionResult struct {
	Label      string  `json:"label"`
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// PredictResult is what the detector returns for one image or frame.
type PredictResult struct {
	Detections []DetectionResult `json:"detections"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
}

// Count returns the number of detections; a nil result counts as zero.
func (r *PredictResult) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Detections)
}
