package handler

import (
	"mime/multipart"
	"net/http"
	"net/textproto"

	"detectweb/internal/logger"
	"detectweb/internal/service"
	"detectweb/internal/service/stream"
)

var framePartHeader = textproto.MIMEHeader{"Content-Type": {"image/jpeg"}}

// VideoFeedHandler streams annotated camera frames as multipart/x-mixed-replace.
// The camera is released before the handler returns, whether the stream ended
// or the viewer went away.
func VideoFeedHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, _ := w.(http.Flusher)
		flush := func() {
			if flusher != nil {
				flusher.Flush()
			}
		}

		parts := multipart.NewWriter(w)
		if err := parts.SetBoundary(stream.Boundary); err != nil {
			logger.Error("Invalid stream boundary: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+stream.Boundary)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		flush()

		s := manager.OpenStream(r.Context())
		defer s.Close()

		frames := 0
		for frame := range s.C {
			part, err := parts.CreatePart(framePartHeader)
			if err != nil {
				logger.Info("Viewer left stream after %d frame(s)", frames)
				return
			}
			if _, err := part.Write(frame); err != nil {
				logger.Info("Viewer left stream after %d frame(s)", frames)
				return
			}
			flush()
			frames++
		}

		if err := parts.Close(); err != nil {
			logger.Warning("Error closing stream: %v", err)
		}
		flush()
		logger.Info("Stream ended after %d frame(s)", frames)
	}
}
