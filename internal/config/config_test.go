package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.ScorerBackend != BackendOpenCV {
		t.Errorf("Expected opencv backend, got %s", cfg.ScorerBackend)
	}
	if cfg.InputSize != 1280 || cfg.ConfidenceThreshold != 0.25 || cfg.IoUThreshold != 0.4 {
		t.Errorf("Unexpected detection defaults: %d %.2f %.2f", cfg.InputSize, cfg.ConfidenceThreshold, cfg.IoUThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("PORT", "9090")
	t.Setenv("DETECT_CONFIDENCE", "0.5")
	t.Setenv("DETECT_INPUT_SIZE", "not-a-number")

	cfg := Load()
	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.ConfidenceThreshold != 0.5 {
		t.Errorf("Expected confidence 0.5, got %f", cfg.ConfidenceThreshold)
	}
	if cfg.InputSize != 1280 {
		t.Errorf("Invalid value should fall back to default, got %d", cfg.InputSize)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte("SCORER_BACKEND=remote\nINFERENCE_URL=http://scorer:5000\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Setenv("ENV_FILE", envFile)
	// godotenv sets these; make sure they are cleared after the test
	t.Setenv("SCORER_BACKEND", "")
	t.Setenv("INFERENCE_URL", "")
	os.Unsetenv("SCORER_BACKEND")
	os.Unsetenv("INFERENCE_URL")

	cfg := Load()
	if cfg.ScorerBackend != BackendRemote {
		t.Errorf("Expected remote backend from .env, got %s", cfg.ScorerBackend)
	}
	if cfg.InferenceURL != "http://scorer:5000" {
		t.Errorf("Unexpected inference URL %s", cfg.InferenceURL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:                8080,
			ScorerBackend:       BackendONNX,
			InputSize:           640,
			ConfidenceThreshold: 0.25,
			IoUThreshold:        0.4,
			MaxUploadSizeMB:     16,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"unknown backend", func(c *Config) { c.ScorerBackend = "torch" }},
		{"input size not multiple of 32", func(c *Config) { c.InputSize = 641 }},
		{"negative confidence", func(c *Config) { c.ConfidenceThreshold = -0.1 }},
		{"iou above one", func(c *Config) { c.IoUThreshold = 1.5 }},
		{"no upload size", func(c *Config) { c.MaxUploadSizeMB = 0 }},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Base config should validate: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
