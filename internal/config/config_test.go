package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FILETRACK_CONFIG", "")
	t.Setenv("FILETRACK_LOG_PATH", "/var/log/mail.log")
	t.Setenv("FILETRACK_REGISTRY", "/var/lib/filetrack/mail.registry")
	t.Setenv("FILETRACK_STORE", "")
	t.Setenv("FILETRACK_MAX_LINES", "25")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TRACING_ENABLED", "not-a-bool")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogPath != "/var/log/mail.log" || cfg.RegistryPath != "/var/lib/filetrack/mail.registry" {
		t.Errorf("paths = %q, %q", cfg.LogPath, cfg.RegistryPath)
	}
	if cfg.MaxLines != 25 {
		t.Errorf("MaxLines = %d, want 25", cfg.MaxLines)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.TracingEnabled {
		t.Error("TracingEnabled = true for an unparsable value")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filetrack.yaml")
	content := `log_path: /var/log/app.log
store: /var/lib/filetrack/positions.db
max_lines: 10
log_level: warn
tracing:
  enabled: true
  protocol: http
retry:
  max_attempts: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FILETRACK_CONFIG", path)
	t.Setenv("FILETRACK_LOG_PATH", "")
	t.Setenv("FILETRACK_REGISTRY", "")
	t.Setenv("FILETRACK_STORE", "")
	t.Setenv("FILETRACK_MAX_LINES", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("TRACING_ENABLED", "")
	t.Setenv("OTLP_PROTOCOL", "")
	t.Setenv("RETRY_MAX_ATTEMPTS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogPath != "/var/log/app.log" || cfg.StorePath != "/var/lib/filetrack/positions.db" {
		t.Errorf("paths = %q, %q", cfg.LogPath, cfg.StorePath)
	}
	if cfg.MaxLines != 10 || cfg.RetryMaxAttempts != 5 {
		t.Errorf("MaxLines, RetryMaxAttempts = %d, %d", cfg.MaxLines, cfg.RetryMaxAttempts)
	}
	if !cfg.TracingEnabled || cfg.OTLPProtocol != "http" {
		t.Errorf("tracing = %v, %q", cfg.TracingEnabled, cfg.OTLPProtocol)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, env must win over file", cfg.LogLevel)
	}
	if cfg.RetryInitialDelayMs != 100 {
		t.Errorf("RetryInitialDelayMs = %d, want default 100", cfg.RetryInitialDelayMs)
	}
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filetrack.yaml")
	if err := os.WriteFile(path, []byte("max_lines: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FILETRACK_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Error("Load() error = nil for malformed file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{
			name:   "registry mode",
			modify: func(c *Config) {},
		},
		{
			name:    "missing log path",
			modify:  func(c *Config) { c.LogPath = "" },
			wantErr: true,
		},
		{
			name:    "no registry and no store",
			modify:  func(c *Config) { c.RegistryPath = "" },
			wantErr: true,
		},
		{
			name:    "registry and store",
			modify:  func(c *Config) { c.StorePath = "/tmp/positions.db" },
			wantErr: true,
		},
		{
			name:    "negative max lines",
			modify:  func(c *Config) { c.MaxLines = -1 },
			wantErr: true,
		},
		{
			name:    "zero retry attempts",
			modify:  func(c *Config) { c.RetryMaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "max delay below initial delay",
			modify:  func(c *Config) { c.RetryMaxDelayMs = 10 },
			wantErr: true,
		},
		{
			name: "unknown tracing protocol",
			modify: func(c *Config) {
				c.TracingEnabled = true
				c.OTLPProtocol = "udp"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.LogPath = "/var/log/app.log"
			cfg.RegistryPath = "/var/lib/filetrack/app.registry"
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
