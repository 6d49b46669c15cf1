package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Audit     AuditConfig     `yaml:"audit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host            string `yaml:"host" env:"SERVER_HOST"`
	Port            int    `yaml:"port" env:"SERVER_PORT"`
	GRPCPort        int    `yaml:"grpc_port" env:"GRPC_PORT"`
	ShutdownTimeout string `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	SecureCookies   bool   `yaml:"secure_cookies" env:"SECURE_COOKIES"`
}

// DatabaseConfig contains store settings. Driver "memory" runs without PostgreSQL.
type DatabaseConfig struct {
	Driver       string `yaml:"driver" env:"DB_DRIVER"`
	Host         string `yaml:"host" env:"DB_HOST"`
	Port         int    `yaml:"port" env:"DB_PORT"`
	User         string `yaml:"user" env:"DB_USER"`
	Password     string `yaml:"password" env:"DB_PASSWORD"`
	Database     string `yaml:"database" env:"DB_NAME"`
	SSLMode      string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	AutoMigrate  bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE"`
}

// JWTConfig contains identity token settings
type JWTConfig struct {
	Secret    string `yaml:"secret" env:"JWT_SECRET"`
	ExpiresIn string `yaml:"expires_in" env:"JWT_EXPIRES_IN"`
}

// StorageConfig contains upload settings
type StorageConfig struct {
	UploadDir    string   `yaml:"upload_dir" env:"UPLOAD_DIR"`
	BaseURL      string   `yaml:"base_url" env:"STORAGE_BASE_URL"`
	MaxFileSize  int64    `yaml:"max_file_size_mb" env:"MAX_FILE_SIZE_MB"`
	AllowedTypes []string `yaml:"allowed_types"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" env:"LOG_FORMAT"` // "json" or "text"
}

// RateLimitConfig controls login throttling.
type RateLimitConfig struct {
	Backend     string `yaml:"backend" env:"RATE_LIMIT_BACKEND"` // "memory" or "redis"
	LoginLimit  int    `yaml:"login_limit" env:"RATE_LIMIT_LOGIN_LIMIT"`
	LoginWindow string `yaml:"login_window" env:"RATE_LIMIT_LOGIN_WINDOW"`
	IdleTTL     string `yaml:"idle_ttl" env:"RATE_LIMIT_IDLE_TTL"`
	RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisDB     int    `yaml:"redis_db" env:"REDIS_DB"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type AuditConfig struct {
	BufferSize int `yaml:"buffer_size" env:"AUDIT_BUFFER_SIZE"`
}

// BootstrapConfig names the SUPERADMIN created on first start when the store
// has none. Leave Email empty to skip.
type BootstrapConfig struct {
	Name     string `yaml:"name" env:"BOOTSTRAP_SUPERADMIN_NAME"`
	Email    string `yaml:"email" env:"BOOTSTRAP_SUPERADMIN_EMAIL"`
	Password string `yaml:"password" env:"BOOTSTRAP_SUPERADMIN_PASSWORD"`
}

// SchedulerConfig contains cron schedule settings (with seconds field)
type SchedulerConfig struct {
	EvictRateLimiters string `yaml:"evict_rate_limiters"`
	ReconcileLedger   string `yaml:"reconcile_ledger"`
	CheckHealth       string `yaml:"check_health"`
}

// Load reads configuration from a YAML file, then applies environment
// overrides (a .env file next to the process is honoured when present).
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes plus the environment.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	if val := os.Getenv("CORS_ALLOWED_ORIGINS"); val != "" {
		cfg.CORS.AllowedOrigins = strings.Split(val, ",")
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "15s"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.JWT.ExpiresIn == "" {
		c.JWT.ExpiresIn = "7d"
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = "./uploads"
	}
	if c.Storage.MaxFileSize == 0 {
		c.Storage.MaxFileSize = 5
	}
	if len(c.Storage.AllowedTypes) == 0 {
		c.Storage.AllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if c.RateLimit.LoginLimit == 0 {
		c.RateLimit.LoginLimit = 10
	}
	if c.RateLimit.LoginWindow == "" {
		c.RateLimit.LoginWindow = "60s"
	}
	if c.RateLimit.IdleTTL == "" {
		c.RateLimit.IdleTTL = "10m"
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = 256
	}
	if c.Scheduler.EvictRateLimiters == "" {
		c.Scheduler.EvictRateLimiters = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.ReconcileLedger == "" {
		c.Scheduler.ReconcileLedger = "0 0 2 * * *" // 2 AM UTC
	}
	if c.Scheduler.CheckHealth == "" {
		c.Scheduler.CheckHealth = "*/30 * * * * *"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.RateLimit.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the redis rate limiter")
		}
	default:
		return fmt.Errorf("unsupported rate limit backend: %q", c.RateLimit.Backend)
	}
	if c.RateLimit.LoginLimit < 1 {
		return fmt.Errorf("login limit must be positive")
	}

	for name, v := range map[string]string{
		"jwt.expires_in":          c.JWT.ExpiresIn,
		"rate_limit.login_window": c.RateLimit.LoginWindow,
		"rate_limit.idle_ttl":     c.RateLimit.IdleTTL,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if _, err := ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ParseDuration extends time.ParseDuration with a day unit ("7d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", s)
	}
	return d, nil
}

// MustDuration is ParseDuration for values already checked by Validate.
func MustDuration(s string) time.Duration {
	d, err := ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health listener address, or "" when disabled.
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
