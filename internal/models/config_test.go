package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_FileDefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
server:
  addr: "127.0.0.1:9999"
storage:
  driver: sqlite
  sqlite_path: /tmp/photos.db
remote:
  base_url: https://api.example.test
  timeout: 5s
kafka:
  enabled: true
  brokers: ["k1:9092"]
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NUNBODY_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Remote.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Remote.Timeout)
	}
	if cfg.Remote.AnalysisTimeout != 90*time.Second {
		t.Errorf("analysis timeout default = %v", cfg.Remote.AnalysisTimeout)
	}
	if cfg.Upload.MaxBytes != 10<<20 {
		t.Errorf("max bytes default = %d", cfg.Upload.MaxBytes)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Topic != "nunbody.photos" {
		t.Errorf("kafka = %+v", cfg.Kafka)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want env override", cfg.Log.Level)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
}

func TestParseBodyPart(t *testing.T) {
	if bp, err := ParseBodyPart(""); err != nil || bp != BodyPartFull {
		t.Errorf("empty = %q, %v", bp, err)
	}
	if bp, err := ParseBodyPart("upper"); err != nil || bp != BodyPartUpper {
		t.Errorf("upper = %q, %v", bp, err)
	}
	if _, err := ParseBodyPart("arms"); err == nil {
		t.Error("expected error for unknown tag")
	}
}
