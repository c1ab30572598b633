// Package app assembles stores and identity providers from configuration
// for the binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shinyyama/campusconnect/internal/auth"
	"github.com/shinyyama/campusconnect/internal/config"
	"github.com/shinyyama/campusconnect/internal/db"
	"github.com/shinyyama/campusconnect/internal/queue"
	"github.com/shinyyama/campusconnect/internal/repository"
	"github.com/shinyyama/campusconnect/internal/repository/mongostore"
)

type Stores struct {
	Conversations repository.ConversationRepository
	Notifications repository.NotificationRepository
	Announcements repository.AnnouncementRepository

	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

// OpenStores connects the configured backend and prepares its schema.
func OpenStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Stores, error) {
	if cfg.DBDriver == config.DriverMongo {
		mdb, err := db.ConnectMongo(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := mongostore.EnsureIndexes(ctx, mdb); err != nil {
			_ = mdb.Client().Disconnect(ctx)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		log.Info("store ready", "driver", cfg.DBDriver, "database", cfg.MongoDatabase)
		return &Stores{
			Conversations: mongostore.NewConversationRepository(mdb),
			Notifications: mongostore.NewNotificationRepository(mdb),
			Announcements: mongostore.NewAnnouncementRepository(mdb),
			Ping:          func(ctx context.Context) error { return mdb.Client().Ping(ctx, nil) },
			Close:         func(ctx context.Context) error { return mdb.Client().Disconnect(ctx) },
		}, nil
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		_ = db.Close(gdb)
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("store ready", "driver", cfg.DBDriver)
	return &Stores{
		Conversations: repository.NewConversationRepository(gdb),
		Notifications: repository.NewNotificationRepository(gdb),
		Announcements: repository.NewAnnouncementRepository(gdb),
		Ping:          func(ctx context.Context) error { return db.Ping(ctx, gdb) },
		Close:         func(context.Context) error { return db.Close(gdb) },
	}, nil
}

// Identity returns the verifier for the configured provider. The directory
// is nil unless the provider can look users up.
func Identity(ctx context.Context, cfg *config.Config) (auth.Verifier, auth.Directory, error) {
	switch cfg.AuthProvider {
	case config.AuthFirebase:
		fb, err := auth.NewFirebase(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return fb, fb, nil
	default:
		return auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTLeeway), nil, nil
	}
}

// Queue builds the notification queue backend.
func Queue(cfg *config.Config, log *slog.Logger) (queue.Queue, error) {
	if cfg.QueueBackend == config.QueueAsynq {
		return queue.NewAsynq(cfg.RedisURL, cfg.QueueWorkers, log)
	}
	return queue.NewMemory(cfg.QueueSize, cfg.QueueWorkers, log), nil
}
