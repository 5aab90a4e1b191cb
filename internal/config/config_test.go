package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JaimeStill/labrecon/internal/config"
	"github.com/JaimeStill/labrecon/internal/engine"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080
read_timeout = "1m"
write_timeout = "5m"
shutdown_timeout = "30s"

[database]
driver = "postgres"
host = "localhost"
port = 5432
name = "labrecon"
user = "labrecon"
password = "labrecon"
ssl_mode = "disable"

[api]
base_path = "/api"
max_request_size = "16MB"

[api.cors]
enabled = false

[api.pagination]
default_page_size = 25
max_page_size = 50

[engine]
amount_tolerance = "0.10"
critical_residual_threshold = "5.00"

[aliases]
source = "database"
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"

[engine]
large_divergence_threshold = "2500"

[aliases]
source = "file"
file = "/etc/labrecon/aliases.yaml"
watch = false
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func setup(t *testing.T, files map[string]string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeConfig(t, dir, name, content)
	}
	t.Chdir(dir)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLoad(t *testing.T) {
	setup(t, map[string]string{config.BaseConfigFile: baseConfig})

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Server.WriteTimeoutDuration() != 5*time.Minute {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Database.Name != "labrecon" || cfg.Database.DriverName() != "pgx" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.API.MaxRequestSizeBytes() != 16*1024*1024 {
		t.Errorf("max request size = %d", cfg.API.MaxRequestSizeBytes())
	}
	if cfg.API.Pagination.DefaultPageSize != 25 || cfg.API.Pagination.MaxPageSize != 50 {
		t.Errorf("pagination = %+v", cfg.API.Pagination)
	}

	th := cfg.Engine.Thresholds()
	if !th.AmountTolerance.Equal(dec("0.10")) || !th.CriticalResidual.Equal(dec("5")) {
		t.Errorf("thresholds = %+v", th)
	}
	if !th.LargeDivergence.Equal(engine.DefaultThresholds().LargeDivergence) {
		t.Errorf("large divergence = %s, want the default", th.LargeDivergence)
	}

	if cfg.Aliases.Source != config.AliasSourceDatabase || !cfg.Aliases.WatchEnabled() {
		t.Errorf("aliases = %+v", cfg.Aliases)
	}
}

func TestLoadWithOverlay(t *testing.T) {
	setup(t, map[string]string{
		config.BaseConfigFile: baseConfig,
		"config.prod.toml":    overlayConfig,
	})
	t.Setenv(config.EnvLabreconEnv, "prod")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Host != "prodhost" || cfg.Database.Name != "labrecon" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if !cfg.Engine.Thresholds().LargeDivergence.Equal(dec("2500")) ||
		!cfg.Engine.Thresholds().AmountTolerance.Equal(dec("0.10")) {
		t.Errorf("thresholds = %+v", cfg.Engine.Thresholds())
	}
	if cfg.Aliases.Source != config.AliasSourceFile || cfg.Aliases.WatchEnabled() {
		t.Errorf("aliases = %+v", cfg.Aliases)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setup(t, map[string]string{config.BaseConfigFile: baseConfig})

	t.Setenv(config.EnvServerPort, "7070")
	t.Setenv("LABRECON_DB_DRIVER", "sqlite")
	t.Setenv("LABRECON_DB_PATH", "/var/lib/labrecon/results.db")
	t.Setenv(config.EnvAPIMaxRequestSize, "512KB")
	t.Setenv(config.EnvEngineAmountTolerance, "0")
	t.Setenv(config.EnvAliasesSource, config.AliasSourceNone)
	t.Setenv("LABRECON_PAGINATION_MAX_PAGE_SIZE", "200")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("server port = %d", cfg.Server.Port)
	}
	if cfg.Database.DriverName() != "sqlite" || cfg.Database.Path != "/var/lib/labrecon/results.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.API.MaxRequestSizeBytes() != 512*1024 {
		t.Errorf("max request size = %d", cfg.API.MaxRequestSizeBytes())
	}
	if !cfg.Engine.Thresholds().AmountTolerance.IsZero() {
		t.Errorf("tolerance = %s, want 0", cfg.Engine.Thresholds().AmountTolerance)
	}
	if cfg.Aliases.Source != config.AliasSourceNone {
		t.Errorf("alias source = %s", cfg.Aliases.Source)
	}
	if cfg.API.Pagination.MaxPageSize != 200 {
		t.Errorf("max page size = %d", cfg.API.Pagination.MaxPageSize)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	setup(t, nil)
	t.Setenv("LABRECON_DB_DRIVER", "sqlite")
	t.Setenv("LABRECON_DB_PATH", "results.db")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Env() != "local" {
		t.Errorf("Env() = %s, want local", cfg.Env())
	}
	if cfg.ShutdownTimeoutDuration() != 30*time.Second || cfg.Version != "0.1.0" {
		t.Errorf("defaults: shutdown = %s, version = %s", cfg.ShutdownTimeoutDuration(), cfg.Version)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %s", cfg.Server.Addr())
	}
	if cfg.Logging.Format != config.LogFormatText || cfg.Logging.SlogLevel() != slog.LevelInfo {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.API.BasePath != "/api" || cfg.API.MaxRequestSizeBytes() != 32*1024*1024 {
		t.Errorf("api = %+v", cfg.API)
	}

	want := engine.DefaultThresholds()
	got := cfg.Engine.Thresholds()
	if !got.AmountTolerance.Equal(want.AmountTolerance) ||
		!got.CriticalResidual.Equal(want.CriticalResidual) ||
		!got.LargeDivergence.Equal(want.LargeDivergence) {
		t.Errorf("thresholds = %+v, want defaults", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"negative tolerance", map[string]string{config.EnvEngineAmountTolerance: "-0.01"}},
		{"non decimal threshold", map[string]string{config.EnvEngineLargeDivergence: "lots"}},
		{"bad port", map[string]string{config.EnvServerPort: "70000"}},
		{"bad request size", map[string]string{config.EnvAPIMaxRequestSize: "huge"}},
		{"unknown alias source", map[string]string{config.EnvAliasesSource: "ldap"}},
		{"file source without file", map[string]string{config.EnvAliasesSource: config.AliasSourceFile}},
		{"bad shutdown timeout", map[string]string{config.EnvLabreconShutdownTimeout: "soon"}},
		{"bad log level", map[string]string{config.EnvLogLevel: "loud"}},
		{"bad log format", map[string]string{config.EnvLogFormat: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t, map[string]string{config.BaseConfigFile: baseConfig})
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := config.Load(); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestLoadInvalidThresholdIsConfigurationError(t *testing.T) {
	setup(t, map[string]string{config.BaseConfigFile: baseConfig})
	t.Setenv(config.EnvEngineCriticalResidual, "-1")

	_, err := config.Load()
	if !errors.Is(err, engine.ErrInvalidConfiguration) {
		t.Errorf("Load() error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	setup(t, map[string]string{config.BaseConfigFile: "[server\nport = "})

	if _, err := config.Load(); err == nil {
		t.Error("Load() of malformed TOML should fail")
	}
}

func TestLoadLogging(t *testing.T) {
	setup(t, map[string]string{
		config.BaseConfigFile: baseConfig + "\n[logging]\nlevel = \"warn\"\n",
		"config.staging.toml": "[logging]\nformat = \"json\"\n",
	})
	t.Setenv(config.EnvLabreconEnv, "staging")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.SlogLevel() != slog.LevelWarn || cfg.Logging.Format != config.LogFormatJSON {
		t.Errorf("logging = %+v, want warn/json", cfg.Logging)
	}

	t.Setenv(config.EnvLogLevel, "DEBUG")
	cfg, err = config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.SlogLevel() != slog.LevelDebug {
		t.Errorf("level = %s, want debug", cfg.Logging.SlogLevel())
	}
}
