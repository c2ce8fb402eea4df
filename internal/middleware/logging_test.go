package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"detectweb/internal/config"
	"detectweb/internal/logger"

	"github.com/stretchr/testify/require"
)

func TestLoggingMiddleware(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := logger.NewLogger(&config.Config{LogDirectory: dir})
	require.NoError(t, err)
	defer log.Close()

	var flushed bool
	h := LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, flushed = w.(http.Flusher)
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/camera", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, flushed)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	info, err := os.ReadFile(filepath.Join(dir, logger.InfoFile))
	require.NoError(t, err)
	require.Contains(t, string(info), "GET /camera -> 200")

	warning, err := os.ReadFile(filepath.Join(dir, logger.WarningFile))
	require.NoError(t, err)
	require.Contains(t, string(warning), "GET /boom -> 500")
}
