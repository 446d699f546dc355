package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TODO_TRACKER_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("AUTH_SECRET", "hush")
	for _, name := range []string{"LISTEN_ADDR", "DATABASE_URL", "TIMEZONE", "SWEEP_INTERVAL_MINUTES"} {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":3000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.DatabaseURL != "todo_tracker.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Errorf("SweepInterval = %v", cfg.SweepInterval)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("TODO_TRACKER_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("AUTH_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail without an auth secret")
	}
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo-tracker.toml")
	data := []byte("listen_addr = \":8080\"\nauth_secret = \"from-file\"\nsweep_minutes = 5\ndatabase_url = \"file.db\"\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TODO_TRACKER_CONFIG", path)
	t.Setenv("DATABASE_URL", "postgres://localhost/todos")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want file value", cfg.ListenAddr)
	}
	if cfg.AuthSecret != "from-file" {
		t.Errorf("AuthSecret = %q", cfg.AuthSecret)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("SweepInterval = %v", cfg.SweepInterval)
	}
	if cfg.DatabaseURL != "postgres://localhost/todos" {
		t.Errorf("DatabaseURL = %q, env must win over file", cfg.DatabaseURL)
	}
}

func TestLocation(t *testing.T) {
	cfg := Config{Timezone: "UTC"}
	if _, err := cfg.Location(); err != nil {
		t.Fatalf("Location(UTC): %v", err)
	}
	cfg.Timezone = "Atlantis/Nowhere"
	if _, err := cfg.Location(); err == nil {
		t.Fatal("Location should reject unknown timezones")
	}
}
