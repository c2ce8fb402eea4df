package logger

import (
	"os"
	"path/filepath"
	"testing"

	"detectweb/internal/config"

	"github.com/stretchr/testify/require"
)

func TestLogger_WritesPerLevelFiles(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(&config.Config{LogDirectory: dir})
	require.NoError(t, err)
	defer l.Close()

	l.Info("run %s finished", "pred_1")
	l.Warning("slow frame")
	l.Error("camera %d failed", 0)

	info, err := os.ReadFile(filepath.Join(dir, InfoFile))
	require.NoError(t, err)
	require.Contains(t, string(info), "run pred_1 finished")
	require.Contains(t, string(info), "logger_test.go")

	errs, err := os.ReadFile(filepath.Join(dir, ErrorFile))
	require.NoError(t, err)
	require.Contains(t, string(errs), "camera 0 failed")
	require.NotContains(t, string(errs), "slow frame")
}

func TestLogger_CleanLogs(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(&config.Config{LogDirectory: dir})
	require.NoError(t, err)
	defer l.Close()

	l.Warning("something")
	require.NoError(t, l.CleanLogs(WarningFile))

	st, err := os.Stat(filepath.Join(dir, WarningFile))
	require.NoError(t, err)
	require.Zero(t, st.Size())

	require.Error(t, l.CleanLogs("missing.log"))
}
