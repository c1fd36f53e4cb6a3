package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestConfig writes a config file and points HOMETRACKER_CONFIG at it.
func writeTestConfig(t *testing.T, content string) {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("HOMETRACKER_CONFIG", configPath)
}

// clearWorkerEnv removes the supervisor contract variables so the config
// file under test is authoritative.
func clearWorkerEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_PATH", "")
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("DEMO_MODE", "")
}

// TestRun_MalformedConfig verifies run fails on unparseable YAML.
// A missing config file is tolerated (environment-only deployment), so the
// failure case needs a file that exists but cannot be parsed.
func TestRun_MalformedConfig(t *testing.T) {
	clearWorkerEnv(t)
	writeTestConfig(t, "worker: [not a mapping")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with malformed config")
	}
}

// TestRun_MissingDatabasePath verifies run fails when no database path is
// configured anywhere.
func TestRun_MissingDatabasePath(t *testing.T) {
	clearWorkerEnv(t)
	writeTestConfig(t, `
database:
  path: ""

worker:
  demo_mode: true

logging:
  level: info
  format: text
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_DemoModeStartupAndShutdown runs the full worker in demo mode
// until the context deadline. No external services are needed.
func TestRun_DemoModeStartupAndShutdown(t *testing.T) {
	clearWorkerEnv(t)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	writeTestConfig(t, `
database:
  path: "`+dbPath+`"
  wal_mode: true
  busy_timeout: 5

worker:
  poll_interval: 1
  demo_mode: true

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v, want clean shutdown", err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("HOMETRACKER_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("HOMETRACKER_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
