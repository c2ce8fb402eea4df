package model

// Detection represents one detected object belonging to a run.
type Detection struct {
	ID         int64   `json:"id"`
	RunID      int64   `json:"run_id"`
	Label      string  `json:"label"`
	ClassID    int     `json:"class_id"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}
