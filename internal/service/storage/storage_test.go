package storage

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"detectweb/internal/config"
	"detectweb/internal/logger"

	"github.com/stretchr/testify/require"
)

func setupStorage(t *testing.T) (*StorageService, *config.Config) {
	t.Helper()

	root := t.TempDir()
	cfg := &config.Config{
		StaticDirectory: filepath.Join(root, "static"),
		LogDirectory:    filepath.Join(root, "logs"),
	}
	log, err := logger.NewLogger(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	s := NewStorageService(cfg, log)
	require.NoError(t, s.EnsureDirectories())
	return s, cfg
}

func TestEnsureDirectories(t *testing.T) {
	_, cfg := setupStorage(t)

	for _, dir := range []string{cfg.UploadDirectory(), cfg.ResultDirectory()} {
		st, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, st.IsDir())
	}
}

func TestSaveUpload_OverwritesSameName(t *testing.T) {
	s, cfg := setupStorage(t)

	p1, err := s.SaveUpload("road.jpg", strings.NewReader("first"))
	require.NoError(t, err)
	p2, err := s.SaveUpload("road.jpg", strings.NewReader("second"))
	require.NoError(t, err)
	require.Equal(t, p1, p2)
	require.Equal(t, filepath.Join(cfg.UploadDirectory(), "road.jpg"), p1)

	data, err := os.ReadFile(p1)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))
}

func TestSaveUpload_StripsDirectories(t *testing.T) {
	s, cfg := setupStorage(t)

	p, err := s.SaveUpload("../../etc/road.png", strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.UploadDirectory(), "road.png"), p)

	for _, bad := range []string{"", ".", "..", "/"} {
		_, err := s.SaveUpload(bad, strings.NewReader("x"))
		require.ErrorIs(t, err, ErrInvalidFilename, bad)
	}
}

func TestCreateRun_SecondNamerCollides(t *testing.T) {
	s, cfg := setupStorage(t)
	s.SetNamer(SecondNamer)

	now := time.Unix(1700000000, 0)
	name, dir, err := s.CreateRun(now)
	require.NoError(t, err)
	require.Equal(t, "pred_1700000000", name)
	require.Equal(t, filepath.Join(cfg.ResultDirectory(), name), dir)

	_, _, err = s.CreateRun(now.Add(500 * time.Millisecond))
	require.True(t, errors.Is(err, ErrRunExists))

	_, _, err = s.CreateRun(now.Add(time.Second))
	require.NoError(t, err)
}

func TestCreateRun_UniqueNamerDoesNotCollide(t *testing.T) {
	s, _ := setupStorage(t)

	now := time.Unix(1700000000, 0)
	a, _, err := s.CreateRun(now)
	require.NoError(t, err)
	b, _, err := s.CreateRun(now)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.Regexp(t, regexp.MustCompile(`^pred_1700000000_[0-9a-f]{8}$`), a)
}

func TestFindOutputImage(t *testing.T) {
	dir := t.TempDir()

	_, err := FindOutputImage(dir)
	require.ErrorIs(t, err, ErrNoOutputImage)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "detections.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "road.bmp"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "crops.png"), 0755))
	_, err = FindOutputImage(dir)
	require.ErrorIs(t, err, ErrNoOutputImage)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "road.JPG"), []byte("x"), 0644))
	got, err := FindOutputImage(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "road.JPG"), got)

	_, err = FindOutputImage(filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, ErrNoOutputImage)
}

func TestResultURL(t *testing.T) {
	got := ResultURL("pred_1700000000_ab12cd34", "my road.jpg", time.Unix(1700000005, 0))
	require.Equal(t, "/static/results/pred_1700000000_ab12cd34/my%20road.jpg?t=1700000005", got)
}

func TestListRunsAndParseRunTime(t *testing.T) {
	s, cfg := setupStorage(t)

	require.NoError(t, os.Mkdir(filepath.Join(cfg.ResultDirectory(), "pred_20"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(cfg.ResultDirectory(), "pred_10_abcdef12"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(cfg.ResultDirectory(), "other"), 0755))

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Equal(t, []string{"pred_10_abcdef12", "pred_20"}, runs)

	ts, err := ParseRunTime("pred_10_abcdef12")
	require.NoError(t, err)
	require.Equal(t, int64(10), ts.Unix())

	_, err = ParseRunTime("other")
	require.Error(t, err)
	_, err = ParseRunTime("pred_12abc")
	require.Error(t, err)
}

func TestRunDirectory(t *testing.T) {
	s, cfg := setupStorage(t)

	require.Equal(t, cfg.ResultDirectory(), s.ResultDirectory())
	require.Equal(t, filepath.Join(cfg.ResultDirectory(), "pred_5"), s.RunDirectory("pred_5"))
}
