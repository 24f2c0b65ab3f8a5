// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers understood by storage.New.
const (
	DriverMinio  = "minio"
	DriverS3     = "s3"
	DriverMemory = "memory"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port      string
	AppEnv    string
	LogLevel  string
	LogFormat string

	// EnvFile is the dotenv file Load read, or empty when none was found.
	EnvFile string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Storage StorageConfig
}

// StorageConfig describes the S3-compatible backend the gateway talks to.
type StorageConfig struct {
	Driver    string
	Endpoint  string // host[:port], no scheme; empty selects AWS for the s3 driver
	AccessKey string
	SecretKey string
	Bucket    string // used when a request names no bucket
	Region    string
	UseSSL    bool
}

// bindings maps config keys to the environment variables that may carry them,
// in order of precedence. The MINIO_* names are the ones older deployments use.
var bindings = map[string][]string{
	"port":               {"PORT"},
	"app_env":            {"APP_ENV"},
	"log.level":          {"LOG_LEVEL"},
	"log.format":         {"LOG_FORMAT"},
	"http.read_timeout":  {"HTTP_READ_TIMEOUT"},
	"http.write_timeout": {"HTTP_WRITE_TIMEOUT"},
	"storage.driver":     {"STORAGE_DRIVER"},
	"storage.endpoint":   {"STORAGE_ENDPOINT", "MINIO_ENDPOINT"},
	"storage.access_key": {"STORAGE_ACCESS_KEY", "MINIO_ACCESS_KEY"},
	"storage.secret_key": {"STORAGE_SECRET_KEY", "MINIO_SECRET_KEY"},
	"storage.bucket":     {"STORAGE_BUCKET", "MINIO_BUCKET_NAME"},
	"storage.region":     {"STORAGE_REGION", "MINIO_REGION"},
	"storage.use_ssl":    {"STORAGE_USE_SSL"},
}

var defaults = map[string]any{
	"port":               "5000",
	"app_env":            "development",
	"log.level":          "info",
	"log.format":         "text",
	"http.read_timeout":  5 * time.Minute,
	"http.write_timeout": 5 * time.Minute,
	"storage.driver":     DriverMinio,
	"storage.endpoint":   "localhost:9000",
	"storage.access_key": "minioadmin",
	"storage.secret_key": "minioadmin",
	"storage.bucket":     "documents",
	"storage.region":     "us-east-1",
	"storage.use_ssl":    true,
}

// Load reads configuration from a .env file (if present) and environment variables.
// An empty envFile means ".env" in the working directory, which may be absent;
// an explicitly named file must exist.
func Load(envFile string) (*Config, error) {
	loaded := envFile
	if envFile == "" {
		if err := godotenv.Load(); err == nil {
			loaded = ".env"
		}
	} else if err := godotenv.Load(envFile); err != nil {
		return nil, fmt.Errorf("load env file %q: %w", envFile, err)
	}

	v := viper.New()
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{
		Port:         v.GetString("port"),
		AppEnv:       v.GetString("app_env"),
		LogLevel:     v.GetString("log.level"),
		LogFormat:    v.GetString("log.format"),
		EnvFile:      loaded,
		ReadTimeout:  v.GetDuration("http.read_timeout"),
		WriteTimeout: v.GetDuration("http.write_timeout"),
		Storage: StorageConfig{
			Driver:    strings.ToLower(v.GetString("storage.driver")),
			Endpoint:  v.GetString("storage.endpoint"),
			AccessKey: v.GetString("storage.access_key"),
			SecretKey: v.GetString("storage.secret_key"),
			Bucket:    v.GetString("storage.bucket"),
			Region:    v.GetString("storage.region"),
			UseSSL:    v.GetBool("storage.use_ssl"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration the gateway cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMinio, DriverS3, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Bucket == "" {
		return errors.New("default storage bucket is empty")
	}
	if c.Storage.Driver == DriverMinio && c.Storage.Endpoint == "" {
		return errors.New("storage endpoint is empty")
	}
	return nil
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
