package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	apiconfig "geodrop/internal/app/api/config"
	apiserver "geodrop/internal/app/api/server"
	"geodrop/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg, err := apiconfig.Load()
	if err != nil {
		logrus.Fatalf("failed to load api config: %v", err)
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := apiserver.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize api server")
	}
	defer srv.Close()

	log.WithFields(logrus.Fields{
		"port":    cfg.Port,
		"backend": cfg.LedgerBackend,
		"kafka":   cfg.KafkaEnabled,
	}).Info("api listening")
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Fatal("api server stopped")
	}
}
