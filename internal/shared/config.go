package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Upload   UploadConfig   `toml:"upload"`
	Storage  StorageConfig  `toml:"storage"`
	Redis    RedisConfig    `toml:"redis"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

// APIConfig points at the admin backend and describes how to obtain a bearer token.
//
// A static Token wins over client credentials.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TokenURL       string `toml:"token_url"`
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the per-request timeout; zero means none (large uploads).
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// UploadConfig contains bulk upload settings.
type UploadConfig struct {
	Endpoint    string   `toml:"endpoint"`
	Field       string   `toml:"field"`
	Concurrency int      `toml:"concurrency"`
	RateLimit   float64  `toml:"rate_limit"`
	Transport   string   `toml:"transport"` // "api" or "storage"
	Extensions  []string `toml:"extensions"`
}

// StorageConfig contains S3-compatible object storage settings.
type StorageConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	UseSSL    bool   `toml:"use_ssl"`
	PublicURL string `toml:"public_url"`
}

// RedisConfig contains settings for publishing upload events.
//
// An empty Addr disables publishing.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Channel  string `toml:"channel"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains preview server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads envFile (if it exists) into the process environment and overrides config fields from MEDIADESK_* variables.
//
// A missing env file is not an error.
func ApplyEnv(config *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	strs := map[string]*string{
		"MEDIADESK_API_URL":            &config.API.BaseURL,
		"MEDIADESK_TOKEN":              &config.API.Token,
		"MEDIADESK_TOKEN_URL":          &config.API.TokenURL,
		"MEDIADESK_CLIENT_ID":          &config.API.ClientID,
		"MEDIADESK_CLIENT_SECRET":      &config.API.ClientSecret,
		"MEDIADESK_UPLOAD_TRANSPORT":   &config.Upload.Transport,
		"MEDIADESK_STORAGE_ENDPOINT":   &config.Storage.Endpoint,
		"MEDIADESK_STORAGE_ACCESS_KEY": &config.Storage.AccessKey,
		"MEDIADESK_STORAGE_SECRET_KEY": &config.Storage.SecretKey,
		"MEDIADESK_STORAGE_BUCKET":     &config.Storage.Bucket,
		"MEDIADESK_REDIS_ADDR":         &config.Redis.Addr,
		"MEDIADESK_REDIS_PASSWORD":     &config.Redis.Password,
		"MEDIADESK_DATABASE_PATH":      &config.Database.Path,
	}
	for key, field := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*field = v
		}
	}

	ints := map[string]*int{
		"MEDIADESK_API_TIMEOUT":        &config.API.TimeoutSeconds,
		"MEDIADESK_UPLOAD_CONCURRENCY": &config.Upload.Concurrency,
		"MEDIADESK_REDIS_DB":           &config.Redis.DB,
		"MEDIADESK_SERVER_PORT":        &config.Server.Port,
	}
	for key, field := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidConfig, key, v)
		}
		*field = n
	}

	if v, ok := os.LookupEnv("MEDIADESK_STORAGE_USE_SSL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: MEDIADESK_STORAGE_USE_SSL must be a boolean, got %q", ErrInvalidConfig, v)
		}
		config.Storage.UseSSL = b
	}

	return nil
}
