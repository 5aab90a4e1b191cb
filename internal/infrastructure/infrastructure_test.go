package infrastructure_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/labrecon/internal/config"
	"github.com/JaimeStill/labrecon/internal/infrastructure"
	"github.com/JaimeStill/labrecon/pkg/database"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: database.Config{
			Driver:          database.DriverSQLite,
			Path:            filepath.Join(t.TempDir(), "labrecon.db"),
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Version: "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(sqliteConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Database.Connection().Close()

	if infra.Lifecycle == nil || infra.Logger == nil || infra.Database == nil {
		t.Fatalf("infra = %+v", infra)
	}
	if got := infra.Dialect().Name; got != "sqlite" {
		t.Errorf("Dialect() = %s, want sqlite", got)
	}
}

func TestDialectPostgres(t *testing.T) {
	cfg := &config.Config{
		Database: database.Config{
			Driver: database.DriverPostgres,
			Host:   "localhost",
			Port:   5432,
			Name:   "labrecon",
			User:   "labrecon",
		},
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Database.Connection().Close()

	if d := infra.Dialect(); d.Name != "postgres" || d.Placeholder(2) != "$2" {
		t.Errorf("dialect = %+v", d)
	}
}

func TestStart(t *testing.T) {
	infra, err := infrastructure.New(sqliteConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := infra.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := infra.Lifecycle.WaitForStartup(); err != nil {
		t.Fatalf("WaitForStartup() error = %v", err)
	}
	if !infra.Lifecycle.Ready() {
		t.Error("lifecycle should be ready once the database answers")
	}

	if err := infra.Lifecycle.Shutdown(time.Second); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := infra.Database.Connection().Ping(); err == nil {
		t.Error("connection should be closed after shutdown")
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LoggingConfig
		wantJSON  bool
		wantDebug bool
	}{
		{"default text at info", config.LoggingConfig{}, false, false},
		{"json", config.LoggingConfig{Format: config.LogFormatJSON, Level: "info"}, true, false},
		{"debug", config.LoggingConfig{Format: config.LogFormatText, Level: "debug"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := infrastructure.NewLogger(&tt.cfg, &buf)
			logger.Debug("detail")
			logger.Info("run saved", "matched", 2)

			out := buf.String()
			if got := strings.HasPrefix(out, "{"); got != tt.wantJSON {
				t.Errorf("json output = %v, want %v: %s", got, tt.wantJSON, out)
			}
			if got := strings.Contains(out, "detail"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if !strings.Contains(out, "run saved") {
				t.Errorf("info line missing: %s", out)
			}
		})
	}
}
