package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/campusconnect/internal/app"
	"github.com/shinyyama/campusconnect/internal/config"
	"github.com/shinyyama/campusconnect/internal/logging"
	"github.com/shinyyama/campusconnect/internal/metrics"
	"github.com/shinyyama/campusconnect/internal/realtime"
	"github.com/shinyyama/campusconnect/internal/server"
	"github.com/shinyyama/campusconnect/internal/service"
)

var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(logging.Config{
		Version: cfg.Version,
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Backend: logging.Backend(cfg.LogBackend),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stores.Close(closeCtx); err != nil {
			logger.Warn("close store", "err", err)
		}
	}()

	verifier, directory, err := app.Identity(ctx, cfg)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}
	registry := realtime.NewRegistry(logger, m)

	q, err := app.Queue(cfg, logger)
	if err != nil {
		return err
	}

	convSvc := service.NewConversationService(stores.Conversations, registry, directory, logger, m)
	notifSvc := service.NewNotificationService(stores.Notifications, q, registry, logger, m)
	annSvc := service.NewAnnouncementService(stores.Announcements, registry, logger)
	unreadSvc := service.NewUnreadService(stores.Conversations, stores.Notifications)

	if err := q.Start(); err != nil {
		return err
	}

	gateway := realtime.NewGateway(verifier, registry, convSvc, realtime.Options{
		HandshakeTimeout: cfg.HandshakeTimeout,
		PingPeriod:       cfg.PingPeriod,
		SendBuffer:       cfg.SendBuffer,
		AllowedOrigins:   cfg.AllowedOrigins,
	}, logger)

	srv := server.New(server.Deps{
		Log:            logger,
		Metrics:        m,
		Verifier:       verifier,
		Directory:      directory,
		Gateway:        gateway,
		Conversations:  convSvc,
		Notifications:  notifSvc,
		Announcements:  annSvc,
		Unread:         unreadSvc,
		AllowedOrigins: cfg.AllowedOrigins,
		InternalToken:  cfg.InternalToken,
		Ready:          stores.Ping,
	}, gitSHA, buildTime)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		registry.CloseAll()
		q.Shutdown()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("http shutdown", "err", err)
	}
	registry.CloseAll()
	q.Shutdown()
	return nil
}
