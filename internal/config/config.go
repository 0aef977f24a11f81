package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Scorer backends.
const (
	BackendOpenCV = "opencv"
	BackendONNX   = "onnx"
	BackendRemote = "remote"
)

type Config struct {
	Port            int
	SecretKey       string
	DatabasePath    string
	UploadDirectory string
	LogDirectory    string
	LogMaxSizeMB    int // Rotate log files after this many megabytes
	LogMaxBackups   int
	MaxUploadSizeMB int64
	BcryptCost      int

	ScorerBackend       string // opencv, onnx or remote
	ModelPath           string // YOLOv5l exported to ONNX
	OnnxLibraryPath     string
	OnnxInputName       string
	OnnxOutputName      string
	InferenceURL        string // base URL serving /predict and /health
	InferenceTimeoutSec int

	InputSize           int
	ConfidenceThreshold float64
	IoUThreshold        float64
}

// Load reads configuration from the environment. Values from a .env file in the
// working directory (or ENV_FILE) are applied first without overriding real
// environment variables.
func Load() *Config {
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))

	return &Config{
		Port:            getEnvAsInt("PORT", 8080),
		SecretKey:       getEnv("SECRET_KEY", ""),
		DatabasePath:    getEnv("DATABASE_PATH", filepath.Join(".", "data", "users.db")),
		UploadDirectory: getEnv("UPLOAD_DIR", filepath.Join(".", "static", "uploads")),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogMaxSizeMB:    getEnvAsInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups:   getEnvAsInt("LOG_MAX_BACKUPS", 3),
		MaxUploadSizeMB: getEnvAsInt64("MAX_UPLOAD_SIZE_MB", 16),
		BcryptCost:      getEnvAsInt("BCRYPT_COST", 10),

		ScorerBackend:       getEnv("SCORER_BACKEND", BackendOpenCV),
		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "yolov5l.onnx")),
		OnnxLibraryPath:     getEnv("ONNXRUNTIME_LIB", ""),
		OnnxInputName:       getEnv("ONNX_INPUT_NAME", "images"),
		OnnxOutputName:      getEnv("ONNX_OUTPUT_NAME", "output0"),
		InferenceURL:        getEnv("INFERENCE_URL", "http://localhost:5000"),
		InferenceTimeoutSec: getEnvAsInt("INFERENCE_TIMEOUT_SEC", 60),

		InputSize:           getEnvAsInt("DETECT_INPUT_SIZE", 1280),
		ConfidenceThreshold: getEnvAsFloat("DETECT_CONFIDENCE", 0.25),
		IoUThreshold:        getEnvAsFloat("DETECT_IOU", 0.4),
	}
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	switch c.ScorerBackend {
	case BackendOpenCV, BackendONNX, BackendRemote:
	default:
		return fmt.Errorf("unknown scorer backend %q", c.ScorerBackend)
	}

	if c.InputSize <= 0 || c.InputSize%32 != 0 {
		return fmt.Errorf("input size must be a positive multiple of 32, got %d", c.InputSize)
	}
	if !(c.ConfidenceThreshold >= 0 && c.ConfidenceThreshold <= 1) {
		return fmt.Errorf("confidence threshold must be in [0, 1], got %g", c.ConfidenceThreshold)
	}
	if !(c.IoUThreshold >= 0 && c.IoUThreshold <= 1) {
		return fmt.Errorf("IoU threshold must be in [0, 1], got %g", c.IoUThreshold)
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
