package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shinyyama/campusconnect/internal/config"
	"github.com/shinyyama/campusconnect/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BuildDSN returns the MySQL DSN for cfg.
func BuildDSN(cfg *config.Config) string {
	addr := cfg.DBHost

	// Prefer Cloud SQL unix socket when INSTANCE_CONNECTION_NAME is provided.
	switch {
	case cfg.InstanceConnectionName != "":
		addr = fmt.Sprintf("unix(/cloudsql/%s)", cfg.InstanceConnectionName)
	case strings.HasPrefix(cfg.DBHost, "tcp("), strings.HasPrefix(cfg.DBHost, "unix("):
	case strings.HasPrefix(cfg.DBHost, "/"):
		addr = fmt.Sprintf("unix(%s)", cfg.DBHost)
	default:
		addr = fmt.Sprintf("tcp(%s:%s)", cfg.DBHost, cfg.DBPort)
	}

	return fmt.Sprintf("%s:%s@%s/%s?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DBUser, cfg.DBPassword, addr, cfg.DBName)
}

// Connect opens the relational store selected by DB_DRIVER.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		return open(mysql.Open(BuildDSN(cfg)), 10)
	case config.DriverPostgres:
		return open(postgres.Open(cfg.DatabaseURL), 10)
	case config.DriverSQLite:
		return OpenSQLite(cfg.DatabaseURL)
	}
	return nil, fmt.Errorf("db: %q is not a relational driver", cfg.DBDriver)
}

// OpenSQLite opens a file-backed SQLite database. SQLite allows a single
// writer, so the pool is pinned to one connection.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path + "?_busy_timeout=5000&_foreign_keys=on"
	return open(sqlite.Open(dsn), 1)
}

func open(d gorm.Dialector, maxOpen int) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		PrepareStmt: true,
		Logger:      gormLogger(),
		NowFunc:     func() time.Time { return time.Now().UTC() },
	}
	db, err := gorm.Open(d, gcfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetMaxIdleConns(min(5, maxOpen))
	sqlDB.SetMaxOpenConns(maxOpen)

	return db, nil
}

// gormLogger routes slow and failed queries to the process slog logger.
// Missing rows are expected lookups, not warnings.
func gormLogger() logger.Interface {
	return logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Conversation{},
		&model.Message{},
		&model.Notification{},
		&model.Announcement{},
		&model.AnnouncementRead{},
	)
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
