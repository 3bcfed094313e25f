package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Log reading
	LogPath      string // Logical path of the log file to follow
	RegistryPath string // Registry file keeping the position (file mode)
	StorePath    string // BoltDB store keeping positions of many logs (store mode)
	MaxLines     int    // Lines to read per run, 0 reads to the end

	// Registry lock contention
	RetryMaxAttempts    int
	RetryInitialDelayMs int
	RetryMaxDelayMs     int

	// Observability
	LogLevel       string
	LogFile        string
	TracingEnabled bool
	OTLPEndpoint   string
	OTLPProtocol   string
}

// fileConfig is the layout of the optional YAML config file
type fileConfig struct {
	LogPath  string `yaml:"log_path"`
	Registry string `yaml:"registry"`
	Store    string `yaml:"store"`
	MaxLines *int   `yaml:"max_lines"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	Tracing struct {
		Enabled  *bool  `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
		Protocol string `yaml:"protocol"`
	} `yaml:"tracing"`

	Retry struct {
		MaxAttempts    *int `yaml:"max_attempts"`
		InitialDelayMs *int `yaml:"initial_delay_ms"`
		MaxDelayMs     *int `yaml:"max_delay_ms"`
	} `yaml:"retry"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		RetryMaxAttempts:    3,
		RetryInitialDelayMs: 100,
		RetryMaxDelayMs:     5000,
		LogLevel:            "info",
		OTLPProtocol:        "grpc",
	}
}

// Load builds the configuration from defaults, the YAML file named by
// FILETRACK_CONFIG (if set) and environment variables, in that order.
// Callers apply their own overrides and then call Validate.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv("FILETRACK_CONFIG"))
}

// LoadFrom is like Load but reads the YAML file at path instead.
// An empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.LogPath = getEnv("FILETRACK_LOG_PATH", cfg.LogPath)
	cfg.RegistryPath = getEnv("FILETRACK_REGISTRY", cfg.RegistryPath)
	cfg.StorePath = getEnv("FILETRACK_STORE", cfg.StorePath)
	cfg.MaxLines = getEnvInt("FILETRACK_MAX_LINES", cfg.MaxLines)

	cfg.RetryMaxAttempts = getEnvInt("RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)
	cfg.RetryInitialDelayMs = getEnvInt("RETRY_INITIAL_DELAY_MS", cfg.RetryInitialDelayMs)
	cfg.RetryMaxDelayMs = getEnvInt("RETRY_MAX_DELAY_MS", cfg.RetryMaxDelayMs)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.TracingEnabled = getEnvBool("TRACING_ENABLED", cfg.TracingEnabled)
	cfg.OTLPEndpoint = getEnv("OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.OTLPProtocol = getEnv("OTLP_PROTOCOL", cfg.OTLPProtocol)

	return cfg, nil
}

// MergeFile applies the values set in a YAML config file
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.LogPath, fc.LogPath)
	setString(&c.RegistryPath, fc.Registry)
	setString(&c.StorePath, fc.Store)
	setInt(&c.MaxLines, fc.MaxLines)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFile, fc.LogFile)

	if fc.Tracing.Enabled != nil {
		c.TracingEnabled = *fc.Tracing.Enabled
	}
	setString(&c.OTLPEndpoint, fc.Tracing.Endpoint)
	setString(&c.OTLPProtocol, fc.Tracing.Protocol)

	setInt(&c.RetryMaxAttempts, fc.Retry.MaxAttempts)
	setInt(&c.RetryInitialDelayMs, fc.Retry.InitialDelayMs)
	setInt(&c.RetryMaxDelayMs, fc.Retry.MaxDelayMs)

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.LogPath == "" {
		return fmt.Errorf("FILETRACK_LOG_PATH is required")
	}
	if c.RegistryPath == "" && c.StorePath == "" {
		return fmt.Errorf("one of FILETRACK_REGISTRY or FILETRACK_STORE must be specified")
	}
	if c.RegistryPath != "" && c.StorePath != "" {
		return fmt.Errorf("FILETRACK_REGISTRY and FILETRACK_STORE are mutually exclusive")
	}
	if c.MaxLines < 0 {
		return fmt.Errorf("FILETRACK_MAX_LINES must not be negative")
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.RetryInitialDelayMs < 0 || c.RetryMaxDelayMs < c.RetryInitialDelayMs {
		return fmt.Errorf("RETRY_MAX_DELAY_MS must not be lower than RETRY_INITIAL_DELAY_MS")
	}
	if c.TracingEnabled && c.OTLPProtocol != "grpc" && c.OTLPProtocol != "http" {
		return fmt.Errorf("OTLP_PROTOCOL must be grpc or http")
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
