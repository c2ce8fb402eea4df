package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "CONFIDENCE", "IOU", "MAX_DETECTIONS", "IMAGE_SIZE", "CAMERA_INDEX", "CLASS_NAMES", "STATIC_DIR", "MAX_UPLOAD_MB"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	require.Equal(t, 5000, cfg.Port)
	require.InDelta(t, 0.30, cfg.Confidence, 1e-9)
	require.InDelta(t, 0.6, cfg.IoU, 1e-9)
	require.Equal(t, 20, cfg.MaxDetections)
	require.Equal(t, 640, cfg.ImageSize)
	require.Equal(t, 0, cfg.CameraIndex)
	require.Equal(t, []string{"pothole"}, cfg.ClassNames)
	require.Equal(t, filepath.Join("static", "uploads"), cfg.UploadDirectory())
	require.Equal(t, filepath.Join("static", "results"), cfg.ResultDirectory())
	require.Zero(t, cfg.MaxUploadBytes())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("CONFIDENCE", "0.45")
	t.Setenv("CLASS_NAMES", " crack, pothole ,,")
	t.Setenv("STATIC_DIR", "/srv/www")
	t.Setenv("MAX_UPLOAD_MB", "8")

	cfg := Load()

	require.Equal(t, 8081, cfg.Port)
	require.InDelta(t, 0.45, cfg.Confidence, 1e-9)
	require.Equal(t, []string{"crack", "pothole"}, cfg.ClassNames)
	require.Equal(t, filepath.Join("/srv/www", "results"), cfg.ResultDirectory())
	require.Equal(t, int64(8<<20), cfg.MaxUploadBytes())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("MAX_DETECTIONS", "many")
	t.Setenv("IOU", "0,6")

	cfg := Load()

	require.Equal(t, 20, cfg.MaxDetections)
	require.InDelta(t, 0.6, cfg.IoU, 1e-9)
}
