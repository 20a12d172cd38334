package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	consumerconfig "geodrop/internal/app/consumer/config"
	"geodrop/internal/db"
	"geodrop/internal/domain/airdrop"
	"geodrop/internal/messaging/audit"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server runs the audit consumer next to a small ops endpoint.
type Server struct {
	cfg      consumerconfig.Config
	log      logrus.FieldLogger
	store    *db.Store
	consumer *audit.Consumer
	ops      *http.Server
}

// New connects Postgres, ensures the schema and joins the consumer group.
func New(ctx context.Context, cfg consumerconfig.Config, log logrus.FieldLogger) (*Server, error) {
	s := &Server{cfg: cfg, log: log}
	store, err := db.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	s.store = store
	if err := store.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}

	recorder := airdrop.NewAuditRecorder(store, log)
	s.consumer, err = audit.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup, cfg.KafkaTopic, recorder, log)
	if err != nil {
		s.Close()
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	s.ops = &http.Server{Addr: cfg.MetricsAddr, Handler: OpsHandler(store)}
	return s, nil
}

// OpsHandler serves /metrics and a /healthz that checks the audit store.
func OpsHandler(store Pinger) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

// Run consumes audit events until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		if err := s.ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("ops server stopped")
		}
	}()
	s.log.WithField("addr", s.cfg.MetricsAddr).Info("ops endpoint listening")
	return s.consumer.Start(ctx)
}

// Close stops the ops endpoint, leaves the group and closes the pool.
func (s *Server) Close() {
	if s.ops != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.ops.Shutdown(shutdownCtx)
	}
	if s.consumer != nil {
		_ = s.consumer.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}
