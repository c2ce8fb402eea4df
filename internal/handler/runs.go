package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"detectweb/internal/dto"
	"detectweb/internal/logger"
	"detectweb/internal/model"
	"detectweb/internal/service"

	"github.com/gorilla/mux"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

// GetRunsHandler returns the most recent runs, newest first.
func GetRunsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := min(atoiDefault(r.URL.Query().Get("limit"), defaultRunsLimit), maxRunsLimit)

		runs, err := manager.RecentRuns(limit)
		if err != nil {
			logger.Error("Error querying runs from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []model.Run{}
		}

		writeJSON(w, logger, runs)
	}
}

// GetRunHandler returns one run with its detections, or 404.
func GetRunHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]

		run, detections, err := manager.GetRun(name)
		if err != nil {
			logger.Error("Error querying run %s: %v", name, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if run == nil {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		if detections == nil {
			detections = []model.Detection{}
		}

		writeJSON(w, logger, dto.RunDetails{Run: *run, Detections: detections})
	}
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
