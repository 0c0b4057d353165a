package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      int
	AuthToken string // Empty disables token checks

	ModelPath       string
	ModelInputName  string
	ModelOutputName string
	InputSize       int
	NumClasses      int

	ConfidenceThreshold float64
	IoUThreshold        float64
	ClassAwareNMS       bool
	Rotation            int    // Degrees clockwise applied after ingest
	PreviewScale        string // stretch, fit or fill
	DisplayWidth        int    // 0 until a viewer reports its size
	DisplayHeight       int
	ClearOnError        bool

	LabelsPath           string
	DatabasePath         string
	JournalLimit         int
	JournalFlushInterval time.Duration
	JournalRetention     time.Duration // 0 keeps frames forever
	LogDirectory         string
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	return &Config{
		Port:      getEnvAsInt("PORT", 8080),
		AuthToken: getEnv("AUTH_TOKEN", ""),

		ModelPath:       getEnv("MODEL_PATH", filepath.Join(".", "models", "yolov8n.onnx")),
		ModelInputName:  getEnv("MODEL_INPUT_NAME", "images"),
		ModelOutputName: getEnv("MODEL_OUTPUT_NAME", "output0"),
		InputSize:       getEnvAsInt("INPUT_SIZE", 640),
		NumClasses:      getEnvAsInt("NUM_CLASSES", 80),

		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.25),
		IoUThreshold:        getEnvAsFloat("IOU_THRESHOLD", 0.5),
		ClassAwareNMS:       getEnvAsBool("CLASS_AWARE_NMS", false),
		Rotation:            getEnvAsInt("ROTATION", 0),
		PreviewScale:        getEnv("PREVIEW_SCALE", "stretch"),
		DisplayWidth:        getEnvAsInt("DISPLAY_WIDTH", 0),
		DisplayHeight:       getEnvAsInt("DISPLAY_HEIGHT", 0),
		ClearOnError:        getEnvAsBool("CLEAR_ON_ERROR", true),

		LabelsPath:           getEnv("LABELS_PATH", ""),
		DatabasePath:         getEnv("DATABASE_PATH", filepath.Join(".", "data", "overlay.db")),
		JournalLimit:         getEnvAsInt("JOURNAL_LIMIT", 50),
		JournalFlushInterval: time.Duration(getEnvAsInt("JOURNAL_FLUSH_INTERVAL", 5)) * time.Second,
		JournalRetention:     time.Duration(getEnvAsInt("JOURNAL_RETENTION", 168)) * time.Hour,
		LogDirectory:         getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT out of range: %d", c.Port))
	}
	if c.InputSize <= 0 {
		problems = append(problems, fmt.Sprintf("INPUT_SIZE must be positive: %d", c.InputSize))
	}
	if c.NumClasses <= 0 {
		problems = append(problems, fmt.Sprintf("NUM_CLASSES must be positive: %d", c.NumClasses))
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold >= 1 {
		problems = append(problems, fmt.Sprintf("CONFIDENCE_THRESHOLD must be in [0,1): %v", c.ConfidenceThreshold))
	}
	if c.IoUThreshold <= 0 || c.IoUThreshold > 1 {
		problems = append(problems, fmt.Sprintf("IOU_THRESHOLD must be in (0,1]: %v", c.IoUThreshold))
	}
	switch c.Rotation {
	case 0, 90, 180, 270:
	default:
		problems = append(problems, fmt.Sprintf("ROTATION must be 0, 90, 180 or 270: %d", c.Rotation))
	}
	switch strings.ToLower(c.PreviewScale) {
	case "stretch", "fit", "fill":
	default:
		problems = append(problems, fmt.Sprintf("PREVIEW_SCALE must be stretch, fit or fill: %q", c.PreviewScale))
	}
	if c.DisplayWidth < 0 || c.DisplayHeight < 0 {
		problems = append(problems, "DISPLAY_WIDTH and DISPLAY_HEIGHT must not be negative")
	}
	if c.JournalLimit <= 0 {
		problems = append(problems, fmt.Sprintf("JOURNAL_LIMIT must be positive: %d", c.JournalLimit))
	}
	if c.JournalFlushInterval <= 0 {
		problems = append(problems, "JOURNAL_FLUSH_INTERVAL must be positive")
	}
	if c.JournalRetention < 0 {
		problems = append(problems, "JOURNAL_RETENTION must not be negative")
	}

	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
