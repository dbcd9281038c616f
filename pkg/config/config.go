package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the ingestion service
type Config struct {
	// YouTube platform settings
	YouTube YouTubeConfig `yaml:"youtube" json:"youtube"`

	// Instagram platform settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Ingestion behavior
	Ingest IngestConfig `yaml:"ingest" json:"ingest"`

	// Storage backends
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// HTTP job-submission API
	Server ServerConfig `yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// YouTubeConfig holds YouTube Data API configuration
type YouTubeConfig struct {
	APIKey  string        `yaml:"api_key" json:"api_key"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// InstagramConfig holds Instagram account configuration
type InstagramConfig struct {
	Username    string        `yaml:"username" json:"username"`
	Password    string        `yaml:"password" json:"password"`
	SessionFile string        `yaml:"session_file" json:"session_file"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// MinInterval is the minimum spacing between requests to one platform
	MinInterval time.Duration `yaml:"min_interval" json:"min_interval"`
	// HourlyCeiling is the maximum requests per rolling hour before self-blocking
	HourlyCeiling int `yaml:"hourly_ceiling" json:"hourly_ceiling"`
	// MaxRetries is the number of attempts for rate-limited operations
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// StatePath is where the file-backed rate limit state lives
	StatePath string `yaml:"state_path" json:"state_path"`
	// RedisAddr, when set, switches rate limit state to Redis
	RedisAddr string `yaml:"redis_addr" json:"redis_addr"`
}

// IngestConfig holds ingestion caps and pacing
type IngestConfig struct {
	// MaxComments is the default per-job comment cap
	MaxComments int `yaml:"max_comments" json:"max_comments"`
	// ProfilePostCap bounds how many posts a profile ingestion walks
	ProfilePostCap int `yaml:"profile_post_cap" json:"profile_post_cap"`
	// MaxCommentsPerPost caps each post when the budget is split across a profile
	MaxCommentsPerPost int `yaml:"max_comments_per_post" json:"max_comments_per_post"`
}

// StorageConfig holds storage backend configuration
type StorageConfig struct {
	// Backend selects the storage implementation: "postgres" or "memory"
	Backend     string `yaml:"backend" json:"backend"`
	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		YouTube: YouTubeConfig{
			Timeout: 60 * time.Second,
		},
		Instagram: InstagramConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			Timeout:   300 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MinInterval:   3 * time.Second,
			HourlyCeiling: 100,
			MaxRetries:    3,
			StatePath:     "",
		},
		Ingest: IngestConfig{
			MaxComments:        500,
			ProfilePostCap:     10,
			MaxCommentsPerPost: 100,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if key := os.Getenv("SOCIALINGEST_YOUTUBE_API_KEY"); key != "" {
		c.YouTube.APIKey = key
	}
	if user := os.Getenv("SOCIALINGEST_INSTAGRAM_USERNAME"); user != "" {
		c.Instagram.Username = user
	}
	if pass := os.Getenv("SOCIALINGEST_INSTAGRAM_PASSWORD"); pass != "" {
		c.Instagram.Password = pass
	}
	if sess := os.Getenv("SOCIALINGEST_INSTAGRAM_SESSION_FILE"); sess != "" {
		c.Instagram.SessionFile = sess
	}
	if ua := os.Getenv("SOCIALINGEST_USER_AGENT"); ua != "" {
		c.Instagram.UserAgent = ua
	}

	if v := os.Getenv("SOCIALINGEST_MIN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.RateLimit.MinInterval = d
		}
	}
	if v := os.Getenv("SOCIALINGEST_HOURLY_CEILING"); v != "" {
		var val int
		fmt.Sscanf(v, "%d", &val)
		if val > 0 {
			c.RateLimit.HourlyCeiling = val
		}
	}
	if v := os.Getenv("SOCIALINGEST_RATELIMIT_STATE"); v != "" {
		c.RateLimit.StatePath = v
	}
	if v := os.Getenv("SOCIALINGEST_REDIS_ADDR"); v != "" {
		c.RateLimit.RedisAddr = v
	}

	if v := os.Getenv("SOCIALINGEST_MAX_COMMENTS"); v != "" {
		var val int
		fmt.Sscanf(v, "%d", &val)
		if val > 0 {
			c.Ingest.MaxComments = val
		}
	}

	if dsn := os.Getenv("SOCIALINGEST_POSTGRES_DSN"); dsn != "" {
		c.Storage.PostgresDSN = dsn
		c.Storage.Backend = "postgres"
	}
	if addr := os.Getenv("SOCIALINGEST_LISTEN_ADDR"); addr != "" {
		c.Server.ListenAddr = addr
	}
	if level := os.Getenv("SOCIALINGEST_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".socialingest.yaml",
		".socialingest.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "socialingest", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "socialingest", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// SessionPath returns the configured session blob path for a username,
// falling back to the per-username default location.
func (c *Config) SessionPath(username string) string {
	if c.Instagram.SessionFile != "" {
		return c.Instagram.SessionFile
	}
	if username == "" {
		return ""
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("sessions", "session-"+username)
	}
	return filepath.Join(home, ".config", "socialingest", "session-"+username)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.RateLimit.MinInterval <= 0 {
		errs = append(errs, errors.New("minimum request interval must be positive"))
	}
	if c.RateLimit.HourlyCeiling <= 0 {
		errs = append(errs, errors.New("hourly request ceiling must be positive"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}

	if c.Ingest.MaxComments <= 0 {
		errs = append(errs, errors.New("max comments must be positive"))
	}
	if c.Ingest.ProfilePostCap <= 0 {
		errs = append(errs, errors.New("profile post cap must be positive"))
	}

	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres backend requires a DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Environment variables > .env file > Config file > Defaults
func Load(configPath string) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".socialingest.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
