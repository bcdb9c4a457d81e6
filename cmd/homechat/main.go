package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"homechat/internal/app/hub"
	kafkabroker "homechat/internal/infra/broker/kafka"
	"homechat/internal/infra/config"
	ginserver "homechat/internal/infra/http/gin"
	"homechat/internal/infra/messaging"
	"homechat/internal/infra/obs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger := obs.NewLogger("dev")
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	producer, err := kafkabroker.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		logger.Error("kafka producer init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Error("kafka producer close failed", "error", err)
		}
	}()

	dialer, err := kafkabroker.NewDialer(kafkabroker.DialerConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic,
		GroupPrefix: cfg.KafkaGroupPrefix,
	}, producer, logger)
	if err != nil {
		logger.Error("kafka dialer init failed", "error", err)
		os.Exit(1)
	}

	backend, err := messaging.NewClient(messaging.Config{
		BaseURL: cfg.MessagingBaseURL,
		Timeout: cfg.MessagingTimeout,
	}, logger)
	if err != nil {
		logger.Error("messaging client init failed", "error", err)
		os.Exit(1)
	}

	conversations := hub.New(hub.Config{
		Dialer:       dialer,
		History:      backend,
		Acker:        backend,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       logger,
	})
	defer conversations.Shutdown()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: func() error { return nil },
	}, ginserver.Handlers{
		Chat: ginserver.ChatHandler{Hub: conversations, Logger: logger},
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}
