package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"

	AuthJWT      = "jwt"
	AuthFirebase = "firebase"

	QueueMemory = "memory"
	QueueAsynq  = "asynq"
)

type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppEnv  string `env:"APP_ENV" envDefault:"dev"`
	Version string `env:"APP_VERSION" envDefault:"dev"`

	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogBackend string `env:"LOG_BACKEND"` // std|zap, defaults by APP_ENV

	DBDriver               string `env:"DB_DRIVER" envDefault:"mysql"`
	DBUser                 string `env:"DB_USER"`
	DBPassword             string `env:"DB_PASSWORD"`
	DBHost                 string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`
	DatabaseURL            string `env:"DATABASE_URL"` // postgres DSN, sqlite path or mongo URI
	MongoDatabase          string `env:"MONGO_DATABASE" envDefault:"campusconnect"`

	AuthProvider            string        `env:"AUTH_PROVIDER" envDefault:"jwt"`
	JWTSecret               string        `env:"JWT_SECRET"`
	JWTIssuer               string        `env:"JWT_ISSUER"`
	JWTLeeway               time.Duration `env:"JWT_LEEWAY" envDefault:"30s"`
	FirebaseProjectID       string        `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string        `env:"FIREBASE_CREDENTIALS_FILE"`

	AllowedOrigins   []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	HandshakeTimeout time.Duration `env:"WS_HANDSHAKE_TIMEOUT" envDefault:"5s"`
	PingPeriod       time.Duration `env:"WS_PING_PERIOD" envDefault:"30s"`
	SendBuffer       int           `env:"WS_SEND_BUFFER" envDefault:"64"`

	QueueBackend string `env:"NOTIFY_QUEUE" envDefault:"memory"`
	QueueSize    int    `env:"NOTIFY_QUEUE_SIZE" envDefault:"1024"`
	QueueWorkers int    `env:"NOTIFY_WORKERS" envDefault:"4"`
	RedisURL     string `env:"REDIS_URL"`

	InternalToken  string `env:"INTERNAL_API_TOKEN"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.AuthProvider = strings.ToLower(strings.TrimSpace(c.AuthProvider))
	c.QueueBackend = strings.ToLower(strings.TrimSpace(c.QueueBackend))

	switch c.DBDriver {
	case DriverMySQL:
		if c.DBUser == "" || c.DBName == "" || (c.DBHost == "" && c.InstanceConnectionName == "") {
			return errors.New("mysql requires DB_USER, DB_NAME and DB_HOST (or INSTANCE_CONNECTION_NAME)")
		}
	case DriverPostgres, DriverMongo:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%s requires DATABASE_URL", c.DBDriver)
		}
	case DriverSQLite:
		if c.DatabaseURL == "" {
			c.DatabaseURL = "campusconnect.db"
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.AuthProvider {
	case AuthJWT:
		if c.JWTSecret == "" {
			return errors.New("jwt auth requires JWT_SECRET")
		}
	case AuthFirebase:
		if c.FirebaseProjectID == "" {
			return errors.New("firebase auth requires FIREBASE_PROJECT_ID")
		}
	default:
		return fmt.Errorf("unsupported AUTH_PROVIDER %q", c.AuthProvider)
	}

	switch c.QueueBackend {
	case QueueMemory:
	case QueueAsynq:
		if c.RedisURL == "" {
			return errors.New("asynq queue requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unsupported NOTIFY_QUEUE %q", c.QueueBackend)
	}

	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.QueueWorkers <= 0 {
		c.QueueWorkers = 1
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = 30 * time.Second
	}
	return nil
}
