package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backend selectors for the order repository.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Broker      BrokerConfig
	Audit       AuditConfig
	Collab      CollaboratorConfig
	Scanner     ScannerConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
	Security    SecurityConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StorageConfig struct {
	Backend string
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Enabled  bool
}

type BrokerConfig struct {
	Brokers          []string
	GroupID          string
	MaxReconnects    int
	ReconnectBackoff time.Duration
	WriteTimeout     time.Duration
	HandlerTimeout   time.Duration
	AutoCreateTopics bool
}

type AuditConfig struct {
	Path           string
	Bucket         string
	RetentionHours int
}

type CollaboratorConfig struct {
	DocumentURL     string
	NotificationURL string
	InventoryURL    string
	FinanceURL      string
	RequestTimeout  time.Duration
}

type ScannerConfig struct {
	Interval time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

type SecurityConfig struct {
	MasterSecret string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "procurement-core"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Storage: StorageConfig{
			Backend: getString("STORAGE_BACKEND", StorageMemory),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "procurement_db"),
			User:            getString("DB_USER", "procurement_user"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
			Enabled:  getBool("REDIS_ENABLED", false),
		},
		Broker: BrokerConfig{
			Brokers:          getStrings("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID:          getString("KAFKA_GROUP_ID", "procurement-core"),
			MaxReconnects:    getInt("KAFKA_MAX_RECONNECTS", 5),
			ReconnectBackoff: getDuration("KAFKA_RECONNECT_BACKOFF", 2*time.Second),
			WriteTimeout:     getDuration("KAFKA_WRITE_TIMEOUT", 10*time.Second),
			HandlerTimeout:   getDuration("KAFKA_HANDLER_TIMEOUT", 30*time.Second),
			AutoCreateTopics: getBool("KAFKA_AUTO_CREATE_TOPICS", true),
		},
		Audit: AuditConfig{
			Path:           getString("AUDIT_DB_PATH", "./data/audit.db"),
			Bucket:         getString("AUDIT_BUCKET", "audit"),
			RetentionHours: getInt("AUDIT_RETENTION_HOURS", 2160),
		},
		Collab: CollaboratorConfig{
			DocumentURL:     os.Getenv("DOCUMENT_SERVICE_URL"),
			NotificationURL: os.Getenv("NOTIFICATION_SERVICE_URL"),
			InventoryURL:    os.Getenv("INVENTORY_SERVICE_URL"),
			FinanceURL:      os.Getenv("FINANCE_SERVICE_URL"),
			RequestTimeout:  getDuration("COLLABORATOR_TIMEOUT", 10*time.Second),
		},
		Scanner: ScannerConfig{
			Interval: getDuration("OVERDUE_SCAN_INTERVAL", 15*time.Minute),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
		Security: SecurityConfig{
			MasterSecret: getString("MASTER_SECRET", "dev-only-secret"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	return cfg, nil
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getStrings(key string, fallback []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
