package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 0\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d; want 8080", cfg.Server.Port)
	}
	if cfg.Matching.Threshold != 0.6 {
		t.Errorf("Matching.Threshold = %v; want 0.6", cfg.Matching.Threshold)
	}
	if cfg.Matching.TopK != 3 {
		t.Errorf("Matching.TopK = %d; want 3", cfg.Matching.TopK)
	}
	if cfg.Vision.EmbeddingDim != 512 {
		t.Errorf("Vision.EmbeddingDim = %d; want 512", cfg.Vision.EmbeddingDim)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %q/%q; want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadYAMLValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
matching:
  threshold: 0.45
  top_k: 5
vision:
  models_dir: /opt/models
  embedding_dim: 128
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d; want 9090", cfg.Server.Port)
	}
	if cfg.Matching.Threshold != 0.45 {
		t.Errorf("Matching.Threshold = %v; want 0.45", cfg.Matching.Threshold)
	}
	if cfg.Matching.TopK != 5 {
		t.Errorf("Matching.TopK = %d; want 5", cfg.Matching.TopK)
	}
	if cfg.Vision.ModelsDir != "/opt/models" {
		t.Errorf("Vision.ModelsDir = %q; want /opt/models", cfg.Vision.ModelsDir)
	}
	if cfg.Vision.EmbeddingDim != 128 {
		t.Errorf("Vision.EmbeddingDim = %d; want 128", cfg.Vision.EmbeddingDim)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	t.Setenv("NOVA_SERVER_PORT", "7070")
	t.Setenv("NOVA_MATCH_THRESHOLD", "0.8")
	t.Setenv("NOVA_MODELS_DIR", "/models")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d; want 7070", cfg.Server.Port)
	}
	if cfg.Matching.Threshold != 0.8 {
		t.Errorf("Matching.Threshold = %v; want 0.8", cfg.Matching.Threshold)
	}
	if cfg.Vision.ModelsDir != "/models" {
		t.Errorf("Vision.ModelsDir = %q; want /models", cfg.Vision.ModelsDir)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "nova", User: "nova", Password: "secret"}
	want := "postgres://nova:secret@db:5432/nova?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q; want %q", got, want)
	}
}
