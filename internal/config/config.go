package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig          `yaml:"app"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Redis        RedisConfig        `yaml:"redis"`
	Logger       LoggerConfig       `yaml:"logger"`
	Report       ReportConfig       `yaml:"report"`
	Archive      ArchiveConfig      `yaml:"archive"`
	Notification NotificationConfig `yaml:"notification"`
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `yaml:"name" validate:"required"`
	Env                   string `yaml:"env"`
	Host                  string `yaml:"host"`
	Port                  string `yaml:"port" validate:"required,numeric"`
	Version               string `yaml:"version"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds" validate:"gte=0"`
}

// PostgresConfig holds connection values of the ticket store mirror.
// DSN wins over the discrete fields when set.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port" validate:"gte=0,lte=65535"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name"`
	MaxConns       int32  `yaml:"max_conns" validate:"gte=0"`
	MinConns       int32  `yaml:"min_conns" validate:"gte=0"`
	ConnMaxIdleSec int32  `yaml:"conn_max_idle_seconds"`
	ConnMaxLifeSec int32  `yaml:"conn_max_life_seconds"`
	RunMigrations  bool   `yaml:"run_migrations"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// ReportConfig tunes report generation and rendering.
type ReportConfig struct {
	SLAThreshold        string `yaml:"sla_threshold" validate:"oneof=strict lenient"`
	ApplicationService  string `yaml:"application_service" validate:"required"`
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds" validate:"gte=1"`
	MaxParallelQueries  int    `yaml:"max_parallel_queries" validate:"gte=1"`
	FontPath            string `yaml:"font_path"`
	FontFamily          string `yaml:"font_family" validate:"required"`
	DocumentName        string `yaml:"document_name" validate:"required"`
	DocumentTTLMinutes  int    `yaml:"document_ttl_minutes" validate:"gte=1"`
}

// ArchiveConfig controls upload of exported documents to S3-compatible storage.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint" validate:"omitempty,url"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket" validate:"required_if=Enabled true"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	WebhookURL string `yaml:"webhook_url" validate:"omitempty,url"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		App: AppConfig{
			Name:                  "itop-report",
			Env:                   "development",
			Host:                  "0.0.0.0",
			Port:                  "8080",
			Version:               "dev",
			RequestTimeoutSeconds: 60,
		},
		Postgres: PostgresConfig{
			Port:           5432,
			MaxConns:       10,
			MinConns:       2,
			ConnMaxIdleSec: 30,
			ConnMaxLifeSec: 300,
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Logger: LoggerConfig{
			Level: "info",
		},
		Report: ReportConfig{
			SLAThreshold:        "strict",
			ApplicationService:  "Application",
			QueryTimeoutSeconds: 30,
			MaxParallelQueries:  4,
			FontFamily:          "report",
			DocumentName:        "itop_report.pdf",
			DocumentTTLMinutes:  30,
		},
		Archive: ArchiveConfig{
			Region: "us-east-1",
			Prefix: "itop-reports",
		},
	}
}

// Load reads configuration from defaults, the optional REPORT_CONFIG_FILE yaml file
// and environment variables, in that order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("REPORT_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := cfg.Merge(data); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge overlays yaml configuration onto cfg; keys absent from data keep their value.
func (c *Config) Merge(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Validate checks the configuration constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.App.Name = getEnv("APP_NAME", c.App.Name)
	c.App.Env = getEnv("APP_ENV", c.App.Env)
	c.App.Host = getEnv("APP_HOST", c.App.Host)
	c.App.Port = getEnv("APP_PORT", c.App.Port)
	c.App.Version = getEnv("APP_VERSION", c.App.Version)
	c.App.RequestTimeoutSeconds = getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", c.App.RequestTimeoutSeconds)

	c.Postgres.DSN = getEnv("DB_DSN", c.Postgres.DSN)
	c.Postgres.Host = getEnv("DB_HOST", c.Postgres.Host)
	c.Postgres.Port = getEnvAsInt("DB_PORT", c.Postgres.Port)
	c.Postgres.User = getEnv("DB_USER", c.Postgres.User)
	c.Postgres.Password = getEnv("DB_PASSWORD", c.Postgres.Password)
	c.Postgres.Name = getEnv("DB_NAME", c.Postgres.Name)
	c.Postgres.MaxConns = int32(getEnvAsInt("DB_MAX_CONNS", int(c.Postgres.MaxConns)))
	c.Postgres.MinConns = int32(getEnvAsInt("DB_MIN_CONNS", int(c.Postgres.MinConns)))
	c.Postgres.ConnMaxIdleSec = int32(getEnvAsInt("DB_CONN_MAX_IDLE_SECONDS", int(c.Postgres.ConnMaxIdleSec)))
	c.Postgres.ConnMaxLifeSec = int32(getEnvAsInt("DB_CONN_MAX_LIFE_SECONDS", int(c.Postgres.ConnMaxLifeSec)))
	c.Postgres.RunMigrations = getEnvAsBool("DB_RUN_MIGRATIONS", c.Postgres.RunMigrations)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)

	c.Logger.Level = getEnv("LOG_LEVEL", c.Logger.Level)

	c.Report.SLAThreshold = strings.ToLower(getEnv("REPORT_SLA_THRESHOLD", c.Report.SLAThreshold))
	c.Report.ApplicationService = getEnv("REPORT_APPLICATION_SERVICE", c.Report.ApplicationService)
	c.Report.QueryTimeoutSeconds = getEnvAsInt("REPORT_QUERY_TIMEOUT_SECONDS", c.Report.QueryTimeoutSeconds)
	c.Report.MaxParallelQueries = getEnvAsInt("REPORT_MAX_PARALLEL_QUERIES", c.Report.MaxParallelQueries)
	c.Report.FontPath = getEnv("REPORT_FONT_PATH", c.Report.FontPath)
	c.Report.FontFamily = getEnv("REPORT_FONT_FAMILY", c.Report.FontFamily)
	c.Report.DocumentName = getEnv("REPORT_DOCUMENT_NAME", c.Report.DocumentName)
	c.Report.DocumentTTLMinutes = getEnvAsInt("REPORT_DOCUMENT_TTL_MINUTES", c.Report.DocumentTTLMinutes)

	c.Archive.Enabled = getEnvAsBool("ARCHIVE_ENABLED", c.Archive.Enabled)
	c.Archive.Endpoint = getEnv("ARCHIVE_ENDPOINT", c.Archive.Endpoint)
	c.Archive.Region = getEnv("ARCHIVE_REGION", c.Archive.Region)
	c.Archive.Bucket = getEnv("ARCHIVE_BUCKET", c.Archive.Bucket)
	c.Archive.Prefix = getEnv("ARCHIVE_PREFIX", c.Archive.Prefix)
	c.Archive.AccessKey = getEnv("ARCHIVE_ACCESS_KEY", c.Archive.AccessKey)
	c.Archive.SecretKey = getEnv("ARCHIVE_SECRET_KEY", c.Archive.SecretKey)

	c.Notification.WebhookURL = getEnv("NOTIFY_WEBHOOK_URL", c.Notification.WebhookURL)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ConnString returns the DSN, or builds one from the discrete fields.
// An empty result means no database is configured.
func (p PostgresConfig) ConnString() string {
	if p.DSN != "" {
		return p.DSN
	}
	if p.Host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.Name,
	}
	if p.User != "" {
		u.User = url.UserPassword(p.User, p.Password)
	}
	return u.String()
}

// QueryTimeout is the deadline of a single rollup query.
func (r ReportConfig) QueryTimeout() time.Duration {
	return time.Duration(r.QueryTimeoutSeconds) * time.Second
}

// DocumentTTL is how long a rendered report stays available for download.
func (r ReportConfig) DocumentTTL() time.Duration {
	return time.Duration(r.DocumentTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
