package handler

import (
	"net/http"

	"detectweb/internal/config"
	"detectweb/internal/logger"
	"detectweb/internal/view"
)

// PageHandler renders a static page such as the upload form or the camera view.
func PageHandler(renderer *view.Renderer, page string, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := renderer.Render(w, page, view.PageData{Noun: cfg.TargetNoun}); err != nil {
			logger.Error("Error rendering %s: %v", page, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}
