package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MODEL_DIR", "DISEASE_MODEL", "MAX_FILE_SIZE_MB", "NARRATIVE_TIMEOUT", "DEBUG", "GROQ_API_KEY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.MaxUploadMB != 10 || cfg.MaxUploadBytes() != 10<<20 {
		t.Fatalf("expected 10MB upload limit, got %d", cfg.MaxUploadMB)
	}
	if cfg.NarrativeTimeout != 30*time.Second {
		t.Fatalf("expected 30s narrative timeout, got %s", cfg.NarrativeTimeout)
	}
	want := filepath.Join("model", "chest_xray_vgg16_final_model.onnx")
	if cfg.DiseaseModelPath != want {
		t.Fatalf("expected %s, got %s", want, cfg.DiseaseModelPath)
	}
	if cfg.Debug {
		t.Fatal("expected debug to be off by default")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MODEL_DIR", "/srv/models")
	t.Setenv("DISEASE_MODEL", "")
	t.Setenv("MAX_FILE_SIZE_MB", "4")
	t.Setenv("NARRATIVE_TIMEOUT", "5s")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.DiseaseModelPath != filepath.Join("/srv/models", "chest_xray_vgg16_final_model.onnx") {
		t.Fatalf("model dir not applied: %s", cfg.DiseaseModelPath)
	}
	if cfg.MaxUploadBytes() != 4<<20 {
		t.Fatalf("expected 4MB, got %d", cfg.MaxUploadBytes())
	}
	if cfg.NarrativeTimeout != 5*time.Second {
		t.Fatalf("expected 5s, got %s", cfg.NarrativeTimeout)
	}
	if !cfg.Debug {
		t.Fatal("expected debug on")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"MAX_FILE_SIZE_MB", "lots"},
		{"MAX_FILE_SIZE_MB", "-1"},
		{"DEBUG", "maybe"},
		{"NARRATIVE_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
