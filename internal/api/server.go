package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/apecorreia/ProductScraper/internal/config"
	"github.com/apecorreia/ProductScraper/internal/progress"
)

// Server holds the dependencies for the ops HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	db         *pgxpool.Pool
	redis      *redis.Client
	tracker    *progress.Tracker
	registry   *prometheus.Registry
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, db *pgxpool.Pool, rc *redis.Client, tr *progress.Tracker, reg *prometheus.Registry, l *zap.Logger) *Server {
	s := &Server{
		config:   cfg,
		db:       db,
		redis:    rc,
		tracker:  tr,
		registry: reg,
		logger:   l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
