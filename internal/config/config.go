package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	JWT         JWTConfig         `yaml:"jwt"`
	Log         LogConfig         `yaml:"log"`
	Verifier    VerifierConfig    `yaml:"verifier"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	CreditCheck CreditCheckConfig `yaml:"credit_check"`
	Email       EmailConfig       `yaml:"email"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // "postgres" or "memory"
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	Issuer            string `yaml:"issuer"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// VerifierConfig holds the credit bureau credentials. All three of APIKey,
// ClientID and ClientSecret are needed for the live bureau.
type VerifierConfig struct {
	APIKey         string   `yaml:"api_key"`
	ClientID       string   `yaml:"client_id"`
	ClientSecret   string   `yaml:"client_secret"`
	BaseURL        string   `yaml:"base_url"`
	TokenURL       string   `yaml:"token_url"`
	Scopes         []string `yaml:"scopes"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// HasLiveVerifier reports whether every live bureau credential is configured.
func (v VerifierConfig) HasLiveVerifier() bool {
	return v.APIKey != "" && v.ClientID != "" && v.ClientSecret != ""
}

func (v VerifierConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSeconds) * time.Second
}

// SimulationConfig drives the simulated verifier used without bureau credentials
type SimulationConfig struct {
	DelaySeconds int   `yaml:"delay_seconds"`
	Seed         int64 `yaml:"seed"`
}

func (s SimulationConfig) Delay() time.Duration {
	return time.Duration(s.DelaySeconds) * time.Second
}

// CreditCheckConfig contains credit check lifecycle settings
type CreditCheckConfig struct {
	PendingTimeoutMinutes int  `yaml:"pending_timeout_minutes"`
	Workers               int  `yaml:"workers"`
	QueueSize             int  `yaml:"queue_size"`
	SingleFlight          bool `yaml:"single_flight"`
}

func (c CreditCheckConfig) PendingTimeout() time.Duration {
	return time.Duration(c.PendingTimeoutMinutes) * time.Minute
}

// EmailConfig contains SendGrid settings. Without an API key notifications are only logged.
type EmailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	SendGridHost   string `yaml:"sendgrid_host"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	Enabled                 bool   `yaml:"enabled"`
	ExpireStaleCreditChecks string `yaml:"expire_stale_credit_checks"`
}

// Load reads configuration from a YAML file. A .env file next to the working
// directory is applied to the environment first, if present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a Config from YAML bytes, applying environment overrides and defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Credit bureau
	if val := os.Getenv("CREDIT_BUREAU_API_KEY"); val != "" {
		c.Verifier.APIKey = val
	}
	if val := os.Getenv("CREDIT_BUREAU_CLIENT_ID"); val != "" {
		c.Verifier.ClientID = val
	}
	if val := os.Getenv("CREDIT_BUREAU_CLIENT_SECRET"); val != "" {
		c.Verifier.ClientSecret = val
	}
	if val := os.Getenv("CREDIT_BUREAU_BASE_URL"); val != "" {
		c.Verifier.BaseURL = val
	}

	// Email
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.SendGridAPIKey = val
	}
	if val := os.Getenv("EMAIL_FROM"); val != "" {
		c.Email.FromEmail = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 15
	}

	// Database validation
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	switch c.Database.Driver {
	case "", "postgres":
		c.Database.Driver = "postgres"
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
		if c.Database.MaxOpenConns <= 0 {
			c.Database.MaxOpenConns = 10
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "tenantry-auth"
	}
	if c.JWT.AccessTokenExpiry <= 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Verifier defaults
	if c.Verifier.HasLiveVerifier() && c.Verifier.BaseURL == "" {
		return fmt.Errorf("verifier base url is required when bureau credentials are set")
	}
	if c.Verifier.TokenURL == "" && c.Verifier.BaseURL != "" {
		c.Verifier.TokenURL = strings.TrimRight(c.Verifier.BaseURL, "/") + "/v1/oauth/token"
	}
	if c.Verifier.TimeoutSeconds <= 0 {
		c.Verifier.TimeoutSeconds = 30
	}

	// Simulation defaults
	if c.Simulation.DelaySeconds < 0 {
		return fmt.Errorf("simulation delay must not be negative")
	}
	if c.Simulation.DelaySeconds == 0 {
		c.Simulation.DelaySeconds = 5
	}
	if c.Simulation.Seed == 0 {
		c.Simulation.Seed = time.Now().UnixNano()
	}

	// Credit check defaults
	if c.CreditCheck.PendingTimeoutMinutes <= 0 {
		c.CreditCheck.PendingTimeoutMinutes = 30
	}
	if c.CreditCheck.Workers <= 0 {
		c.CreditCheck.Workers = 4
	}
	if c.CreditCheck.QueueSize <= 0 {
		c.CreditCheck.QueueSize = 100
	}

	// Email defaults
	if c.Email.FromEmail == "" {
		c.Email.FromEmail = "no-reply@tenantry.app"
	}
	if c.Email.FromName == "" {
		c.Email.FromName = "Tenantry"
	}

	// Scheduler defaults
	if c.Scheduler.ExpireStaleCreditChecks == "" {
		c.Scheduler.ExpireStaleCreditChecks = "0 */5 * * * *" // every 5 minutes
	}

	return nil
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

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
