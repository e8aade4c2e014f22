package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	Port    string
	GinMode string

	ORTLibraryPath      string
	DiseaseModelPath    string
	DiseaseMetadataPath string
	GateModelPath       string
	GateMetadataPath    string
	LabelsPath          string

	MaxUploadMB int64

	GroqAPIKey       string
	GroqModel        string
	GroqBaseURL      string
	NarrativeTimeout time.Duration

	LogDirectory string
	Debug        bool
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	modelDir := getEnv("MODEL_DIR", "model")

	maxUpload, err := getEnvAsInt64("MAX_FILE_SIZE_MB", 10)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvAsDuration("NARRATIVE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	debug, err := getEnvAsBool("DEBUG", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		GinMode:             getEnv("GIN_MODE", "release"),
		ORTLibraryPath:      os.Getenv("ONNXRUNTIME_LIB"),
		DiseaseModelPath:    getEnv("DISEASE_MODEL", filepath.Join(modelDir, "chest_xray_vgg16_final_model.onnx")),
		DiseaseMetadataPath: getEnv("DISEASE_METADATA", filepath.Join(modelDir, "chest_xray_vgg16_metadata.json")),
		GateModelPath:       getEnv("GATE_MODEL", filepath.Join(modelDir, "xray_validator.onnx")),
		GateMetadataPath:    getEnv("GATE_METADATA", filepath.Join(modelDir, "xray_validator_metadata.json")),
		LabelsPath:          getEnv("LABELS_PATH", filepath.Join("configs", "labels.yaml")),
		MaxUploadMB:         maxUpload,
		GroqAPIKey:          os.Getenv("GROQ_API_KEY"),
		GroqModel:           getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
		GroqBaseURL:         getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		NarrativeTimeout:    timeout,
		LogDirectory:        getEnv("LOG_DIR", "logs"),
		Debug:               debug,
	}

	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", cfg.MaxUploadMB)
	}
	return cfg, nil
}

// MaxUploadBytes is the request body limit enforced by the transport.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := cast.ToInt64E(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	b, err := cast.ToBoolE(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := cast.ToDurationE(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
