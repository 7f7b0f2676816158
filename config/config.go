package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the full application configuration
type Config struct {
	ServerConfig   ServerConfig   `json:"server"`
	DatabaseConfig DatabaseConfig `json:"database"`
	AuthConfig     AuthConfig     `json:"auth"`
	BillingConfig  BillingConfig  `json:"billing"`
	RedisConfig    RedisConfig    `json:"redis"`
	QuoteConfig    QuoteConfig    `json:"quote"`
	MonitorConfig  MonitorConfig  `json:"monitor"`
	SMTPConfig     SMTPConfig     `json:"smtp"`
	LoggingConfig  LoggingConfig  `json:"logging"`
	ReportTimezone string         `json:"report_timezone"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`
	ProductionMode  bool   `json:"production_mode"`
	StaticFilesPath string `json:"static_files_path"`
	ReadTimeout     int    `json:"read_timeout"`  // seconds
	WriteTimeout    int    `json:"write_timeout"` // seconds
	RequestTimeout  int    `json:"request_timeout"`
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret           string        `json:"jwt_secret"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
	MinPasswordLength   int           `json:"min_password_length"`
	AdminUsername       string        `json:"admin_username"`
	AdminPassword       string        `json:"admin_password"`
}

// BillingConfig holds the billing gate configuration
type BillingConfig struct {
	Enabled bool `json:"enabled"`
}

// RedisConfig holds Redis configuration for the settings cache
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// QuoteConfig holds quote provider and price cache configuration
type QuoteConfig struct {
	SinaBaseURL    string        `json:"sina_base_url"`
	TencentBaseURL string        `json:"tencent_base_url"`
	ForexBaseURL   string        `json:"forex_base_url"`
	RequestTimeout time.Duration `json:"request_timeout"`
	PriceTTL       time.Duration `json:"price_ttl"`
}

// MonitorConfig holds the position monitor configuration
type MonitorConfig struct {
	Enabled      bool          `json:"enabled"`
	TickInterval time.Duration `json:"tick_interval"`
	AlertWindow  time.Duration `json:"alert_window"` // min gap between emails per (user, code, direction)
}

// SMTPConfig holds fallback SMTP settings used when admin_settings has none
type SMTPConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
	Timeout  int    `json:"timeout"` // seconds
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level       string `json:"level"`        // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output"`       // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format"`  // Output as JSON
	IncludeFile bool   `json:"include_file"` // Include file and line number
}

// Load reads config.json if present and applies environment overrides
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}

	applyEnvOverrides(cfg)

	if cfg.AuthConfig.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", 8080)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", "0.0.0.0")
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", "*")
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("SERVER_PRODUCTION", "true") == "true"
	cfg.ServerConfig.StaticFilesPath = getEnvOrDefault("STATIC_FILES_PATH", "./web/dist")
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", 30)
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", 30)
	cfg.ServerConfig.RequestTimeout = getEnvIntOrDefault("SERVER_REQUEST_TIMEOUT", 15)
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10)

	// Database config
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", "localhost")
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", 5432)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", "trade_journal")
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", "trade_journal")
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", "trade_journal")
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	// Auth config
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", 7*24*time.Hour)
	cfg.AuthConfig.MinPasswordLength = getEnvIntOrDefault("AUTH_MIN_PASSWORD_LENGTH", 6)
	cfg.AuthConfig.AdminUsername = getEnvOrDefault("ADMIN_USERNAME", cfg.AuthConfig.AdminUsername)
	cfg.AuthConfig.AdminPassword = getEnvOrDefault("ADMIN_PASSWORD", cfg.AuthConfig.AdminPassword)

	// Billing config
	cfg.BillingConfig.Enabled = getEnvOrDefault("BILLING_ENABLED", "false") == "true"

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", "false") == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", "localhost:6379")
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", 0)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", 10)

	// Quote config
	cfg.QuoteConfig.SinaBaseURL = getEnvOrDefault("QUOTE_SINA_BASE_URL", "https://hq.sinajs.cn")
	cfg.QuoteConfig.TencentBaseURL = getEnvOrDefault("QUOTE_TENCENT_BASE_URL", "https://qt.gtimg.cn")
	cfg.QuoteConfig.ForexBaseURL = getEnvOrDefault("QUOTE_FOREX_BASE_URL", "https://api.exchangerate.host")
	cfg.QuoteConfig.RequestTimeout = getEnvDurationOrDefault("QUOTE_REQUEST_TIMEOUT", 5*time.Second)
	cfg.QuoteConfig.PriceTTL = getEnvDurationOrDefault("PRICE_TTL", 30*time.Second)

	// Monitor config
	cfg.MonitorConfig.Enabled = getEnvOrDefault("MONITOR_ENABLED", "true") == "true"
	cfg.MonitorConfig.TickInterval = getEnvDurationOrDefault("MONITOR_INTERVAL", 10*time.Second)
	cfg.MonitorConfig.AlertWindow = getEnvDurationOrDefault("ALERT_WINDOW", 10*time.Second)

	// SMTP fallback config (admin_settings takes precedence at runtime)
	cfg.SMTPConfig.Host = getEnvOrDefault("SMTP_HOST", cfg.SMTPConfig.Host)
	cfg.SMTPConfig.Port = getEnvOrDefault("SMTP_PORT", "587")
	cfg.SMTPConfig.Username = getEnvOrDefault("SMTP_USERNAME", cfg.SMTPConfig.Username)
	cfg.SMTPConfig.Password = getEnvOrDefault("SMTP_PASSWORD", cfg.SMTPConfig.Password)
	cfg.SMTPConfig.From = getEnvOrDefault("SMTP_FROM", cfg.SMTPConfig.From)
	cfg.SMTPConfig.FromName = getEnvOrDefault("SMTP_FROM_NAME", "Trade Journal")
	cfg.SMTPConfig.Timeout = getEnvIntOrDefault("SMTP_TIMEOUT", 15)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", "INFO")
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", "stdout")
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"
	cfg.LoggingConfig.IncludeFile = getEnvOrDefault("LOG_INCLUDE_FILE", "false") == "true"

	// Reporting timezone: capital history dates are calendar dates in this zone
	cfg.ReportTimezone = getEnvOrDefault("REPORT_TIMEZONE", "Asia/Shanghai")
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
