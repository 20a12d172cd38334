package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	consumerconfig "geodrop/internal/app/consumer/config"
	consumerserver "geodrop/internal/app/consumer/server"
	"geodrop/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	cfg, err := consumerconfig.Load()
	if err != nil {
		logrus.Fatalf("failed to load consumer config: %v", err)
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := consumerserver.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to init consumer")
	}
	defer srv.Close()

	log.WithFields(logrus.Fields{"topic": cfg.KafkaTopic, "group": cfg.KafkaGroup}).Info("consumer started")
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("consumer stopped")
	}
}
