package handler

import (
	"errors"
	"net/http"

	"detectweb/internal/config"
	"detectweb/internal/logger"
	"detectweb/internal/service"
	"detectweb/internal/service/storage"
	"detectweb/internal/view"
)

// UploadHandler handles POST /upload: saves the file, runs detection and renders the result page.
func UploadHandler(manager *service.Manager, renderer *view.Renderer, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if limit := cfg.MaxUploadBytes(); limit > 0 {
			if r.ContentLength > limit {
				http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		file, header, err := r.FormFile("file")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		if err != nil || header.Filename == "" {
			http.Error(w, "No file uploaded", http.StatusBadRequest)
			return
		}
		defer file.Close()

		info, err := manager.ProcessUpload(header.Filename, file)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrInvalidFilename):
			http.Error(w, "No file uploaded", http.StatusBadRequest)
			return
		case errors.Is(err, service.ErrDetectionFailed), errors.Is(err, storage.ErrNoOutputImage):
			logger.Error("Upload %s: %v", header.Filename, err)
			http.Error(w, "No result image generated", http.StatusInternalServerError)
			return
		default:
			logger.Error("Upload %s: %v", header.Filename, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		data := view.ResultData{
			ResultImage:   info.ResultURL,
			NumDetections: info.NumDetections,
			Noun:          cfg.TargetNoun,
		}
		if err := renderer.Render(w, view.ResultPage, data); err != nil {
			logger.Error("Error rendering result page: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}
