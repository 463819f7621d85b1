package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DispatcherAddr != DefaultDispatcherAddr {
		t.Errorf("DispatcherAddr = %q, want %q", cfg.DispatcherAddr, DefaultDispatcherAddr)
	}
	if cfg.DoorDelay != DefaultDoorDelay {
		t.Errorf("DoorDelay = %v, want %v", cfg.DoorDelay, DefaultDoorDelay)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, DefaultLogLevel)
	}
	if cfg.Metrics.Enabled {
		t.Error("expected metrics disabled by default")
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
dispatcher_addr: "127.0.0.1:4000"
door_delay: 500ms
logging:
  level: "DEBUG"
metrics:
  enabled: true
  addr: "127.0.0.1:9999"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.DispatcherAddr != "127.0.0.1:4000" {
		t.Errorf("DispatcherAddr = %q, want 127.0.0.1:4000", cfg.DispatcherAddr)
	}
	if cfg.DoorDelay != 500*time.Millisecond {
		t.Errorf("DoorDelay = %v, want 500ms", cfg.DoorDelay)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Logging.Level = %q, want DEBUG", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics enabled from file")
	}
	if cfg.Metrics.Addr != "127.0.0.1:9999" {
		t.Errorf("Metrics.Addr = %q, want 127.0.0.1:9999", cfg.Metrics.Addr)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected error loading a missing config file")
	}
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("LIFTGRID_DISPATCHER_ADDR", "127.0.0.1:5000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DispatcherAddr != "127.0.0.1:5000" {
		t.Errorf("DispatcherAddr = %q, want env override 127.0.0.1:5000", cfg.DispatcherAddr)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if FileExists(configPath) {
		t.Error("expected FileExists to be false before the file is written")
	}
	if err := os.WriteFile(configPath, []byte("dispatcher_addr: \"127.0.0.1:3000\"\n"), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if !FileExists(configPath) {
		t.Error("expected FileExists to be true once the file exists")
	}
	if FileExists("") {
		t.Error("expected FileExists(\"\") to be false")
	}
}
