package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderResultPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = r.Render(rec, ResultPage, ResultData{
		ResultImage:   "/static/results/pred_1/road.jpg?t=1",
		NumDetections: 4,
		Noun:          "Potholes",
	})
	require.NoError(t, err)

	body := rec.Body.String()
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, body, `src="/static/results/pred_1/road.jpg?t=1"`)
	require.Contains(t, body, "Potholes detected: 4")
}

func TestRenderPages(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	for _, page := range []string{IndexPage, CameraPage} {
		rec := httptest.NewRecorder()
		require.NoError(t, r.Render(rec, page, PageData{Noun: "Potholes"}))
		require.Contains(t, rec.Body.String(), "Potholes")
	}

	rec := httptest.NewRecorder()
	require.Error(t, r.Render(rec, "missing.html", nil))
	require.Empty(t, rec.Body.String())
}
