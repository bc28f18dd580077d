package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/apecorreia/ProductScraper/internal/entity"
)

func (s *Server) handleProgressRequest(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		s.respondWithError(w, http.StatusBadRequest, "source query parameter is required")
		return
	}

	day := r.URL.Query().Get("date")
	if day != "" {
		if _, err := time.Parse("2006-01-02", day); err != nil {
			s.respondWithError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	state, err := s.tracker.State(r.Context(), source, day)
	if err != nil {
		if errors.Is(err, entity.ErrProgressCorrupted) {
			s.respondWithError(w, http.StatusConflict, "progress state is corrupted for this source")
			return
		}
		s.logger.Error("failed to load progress state", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not retrieve progress")
		return
	}

	s.respondWithJSON(w, http.StatusOK, state)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)

	// Check Postgres
	if err := s.db.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		s.logger.Error("health check failed for postgres", zap.Error(err))
	} else {
		healthStatus["postgres"] = "healthy"
	}

	// Check Redis
	if err := s.redis.Ping(ctx).Err(); err != nil {
		healthStatus["redis"] = "unhealthy"
		s.logger.Error("health check failed for redis", zap.Error(err))
	} else {
		healthStatus["redis"] = "healthy"
	}

	isHealthy := healthStatus["postgres"] == "healthy" && healthStatus["redis"] == "healthy"
	if !isHealthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}

	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
