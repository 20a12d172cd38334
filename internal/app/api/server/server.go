package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"geodrop/internal/app/api/auth"
	"geodrop/internal/app/api/config"
	"geodrop/internal/app/api/router"
	"geodrop/internal/db"
	"geodrop/internal/domain/airdrop"
	"geodrop/internal/kafka"
	"geodrop/internal/ledger"
	"geodrop/internal/ledger/memory"
	"geodrop/internal/messaging/audit"
	redispkg "geodrop/internal/redis"
)

// Server wires infrastructure dependencies for the API service.
type Server struct {
	cfg        config.Config
	log        logrus.FieldLogger
	httpServer *http.Server
	store      *db.Store
	redis      *redispkg.Client
	producer   *kafka.Producer
}

// New constructs the server and underlying dependencies.
func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Server, error) {
	s := &Server{cfg: cfg, log: log}
	l, err := s.openLedger(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	var publisher router.EventPublisher = audit.NewLogPublisher(log)
	if cfg.KafkaEnabled {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.producer = producer
		publisher = audit.NewPublisher(producer)
	}

	svc := airdrop.NewService(l, ledger.SystemClock{}, cfg.Rent(), log)
	gin.SetMode(gin.ReleaseMode)
	deps := router.Dependencies{
		Service:       svc,
		Publisher:     publisher,
		Auth:          auth.Options{Guard: s.replayGuard(l), MaxSkew: cfg.AuthMaxSkew},
		Logger:        log,
		FaucetEnabled: cfg.FaucetEnabled,
	}
	if s.store != nil {
		deps.Audit = s.store
	}
	ginRouter := router.New(deps)

	s.httpServer = &http.Server{Addr: ":" + cfg.Port, Handler: ginRouter}
	return s, nil
}

// replayGuard keeps used signatures in Redis with a TTL when Redis is the
// backend, otherwise as ledger records.
func (s *Server) replayGuard(l ledger.Ledger) auth.ReplayGuard {
	if s.redis != nil {
		return auth.NewTTLGuard(s.redis)
	}
	return auth.NewLedgerGuard(l)
}

func (s *Server) openLedger(ctx context.Context) (ledger.Ledger, error) {
	switch s.cfg.LedgerBackend {
	case config.BackendMemory:
		s.log.Warn("memory ledger selected; state is lost on restart")
		return memory.New(), nil
	case config.BackendPostgres:
		store, err := db.New(ctx, s.cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.store = store
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendRedis:
		client, err := redispkg.New(s.cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		s.redis = client
		return client, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", s.cfg.LedgerBackend)
	}
}

// Run starts the HTTP server and blocks until ctx is canceled or fatal error occurs.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Close releases infrastructure resources.
func (s *Server) Close() {
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.producer != nil {
		_ = s.producer.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}
