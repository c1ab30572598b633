// Package logging configures the process-wide slog logger. Production
// environments log JSON through zap; development uses the slog text handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Backend string

const (
	BackendStd Backend = "std"
	BackendZap Backend = "zap"
)

type Config struct {
	Service string
	Version string
	Env     string
	Level   string
	Backend Backend

	// Output defaults to stdout.
	Output io.Writer
}

// New builds the logger described by cfg and installs it as slog's default.
func New(cfg Config) *slog.Logger {
	if cfg.Service == "" {
		cfg.Service = "campusconnect"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	env := strings.ToLower(strings.TrimSpace(cfg.Env))
	if env == "" {
		env = "dev"
	}
	if cfg.Backend == "" {
		if env == "dev" {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}
	lvl := ParseLevel(cfg.Level)

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg.Output, lvl)
	default:
		h = slog.NewTextHandler(cfg.Output, &slog.HandlerOptions{Level: lvl})
	}

	h = h.WithAttrs([]slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", env),
		slog.String("version", cfg.Version),
		slog.String("instance_id", instanceID()),
	})
	l := slog.New(h)
	slog.SetDefault(l)
	return l
}

// ParseLevel maps debug/info/warn/error to slog levels; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func newZapHandler(out io.Writer, lvl slog.Level) slog.Handler {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(out), toZapLevel(lvl))
	// sampling keeps bursts of per-connection logs bounded
	core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 10)

	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return slogzap.Option{Level: lvl, Logger: z}.NewZapHandler()
}

func toZapLevel(lvl slog.Level) zapcore.Level {
	switch {
	case lvl <= slog.LevelDebug:
		return zapcore.DebugLevel
	case lvl == slog.LevelInfo:
		return zapcore.InfoLevel
	case lvl == slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func instanceID() string {
	hn, _ := os.Hostname()
	return hn + "-" + uuid.NewString()[:8]
}
