package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	API     APIConfig
	Session SessionConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
	AllowOrigins    []string
}

// APIConfig describes the remote HealthMate backend
type APIConfig struct {
	BaseURL          string
	Timeout          time.Duration
	ValidateContract bool
}

// SessionConfig controls where the session token is persisted
type SessionConfig struct {
	TokenFile     string
	EncryptionKey string // base64 encoded 32 byte key, optional
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("healthmate")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".healthmate"))
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)
	v.SetDefault("server.alloworigins", []string{"http://localhost:5173"})

	v.SetDefault("api.timeout", 60*time.Second)
	v.SetDefault("api.validatecontract", false)

	tokenFile := ".healthmate-token"
	if home, err := os.UserHomeDir(); err == nil {
		tokenFile = filepath.Join(home, ".healthmate", "token")
	}
	v.SetDefault("session.tokenfile", tokenFile)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	v.BindEnv("api.baseurl", "HEALTHMATE_API_URL", "API_URL")
	v.BindEnv("api.timeout", "API_TIMEOUT")
	v.BindEnv("api.validatecontract", "API_VALIDATE_CONTRACT")

	v.BindEnv("session.tokenfile", "SESSION_TOKEN_FILE")
	v.BindEnv("session.encryptionkey", "SESSION_ENCRYPTION_KEY")

	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.baseurl is required")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.baseurl must be an absolute URL, got %q", c.API.BaseURL)
	}

	if c.Session.TokenFile == "" {
		return fmt.Errorf("session.tokenfile is required")
	}

	if c.Session.EncryptionKey != "" {
		if _, err := c.Session.Key(); err != nil {
			return err
		}
	}

	return nil
}

// Key decodes the configured encryption key. A nil key means the token is stored as-is.
func (s SessionConfig) Key() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("session.encryptionkey must be base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("session.encryptionkey must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
