package route

import (
	"net/http"
	"time"

	"detectweb/internal/config"
	"detectweb/internal/handler"
	"detectweb/internal/logger"
	"detectweb/internal/middleware"
	"detectweb/internal/service"
	"detectweb/internal/view"

	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
)

// SetupRoutes registers the pages, upload, stream, API endpoints and static files.
func SetupRoutes(manager *service.Manager, renderer *view.Renderer, cfg *config.Config, logger *logger.Logger) http.Handler {
	router := mux.NewRouter()

	// Pages
	router.HandleFunc("/", handler.PageHandler(renderer, view.IndexPage, cfg, logger)).Methods(http.MethodGet)
	router.HandleFunc("/camera", handler.PageHandler(renderer, view.CameraPage, cfg, logger)).Methods(http.MethodGet)

	// Detection
	var upload http.Handler = handler.UploadHandler(manager, renderer, cfg, logger)
	if cfg.UploadRateLimit > 0 {
		upload = httprate.Limit(cfg.UploadRateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))(upload)
	}
	router.Handle("/upload", upload).Methods(http.MethodPost)
	router.HandleFunc("/video_feed", handler.VideoFeedHandler(manager, logger)).Methods(http.MethodGet)

	// API endpoints
	router.HandleFunc("/api/runs", handler.GetRunsHandler(manager, logger)).Methods(http.MethodGet)
	router.HandleFunc("/api/runs/{name}", handler.GetRunHandler(manager, logger)).Methods(http.MethodGet)
	router.HandleFunc("/api/events", handler.EventsWebsocketHandler(manager, logger)).Methods(http.MethodGet)

	// Log endpoints
	router.HandleFunc("/logs/{level}", handler.ShowLogsHandler(logger)).Methods(http.MethodGet)
	router.HandleFunc("/logs/{level}/clear", handler.ClearLogsHandler(logger)).Methods(http.MethodPost)

	// Static files, including uploads and results
	router.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory)))).Methods(http.MethodGet, http.MethodHead)

	router.Use(middleware.LoggingMiddleware(logger))
	return router
}
