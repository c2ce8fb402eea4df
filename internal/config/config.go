package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	BindAddr        string
	Port            int
	ModelPath       string
	ModelConfigPath string // optional, only for non-ONNX networks
	ClassNames      []string
	Confidence      float64
	IoU             float64
	MaxDetections   int
	ImageSize       int
	CameraIndex     int
	StaticDirectory string
	DBPath          string
	LogDirectory    string
	UploadRateLimit int    // uploads per minute per client, 0 disables
	MaxUploadMB     int    // request body cap for /upload in MiB, 0 disables
	StreamBuffer    int    // encoded frames buffered between camera and client
	TargetNoun      string // shown in the live caption, e.g. "Potholes detected: 3"
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	// Missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	return &Config{
		BindAddr:        getEnv("BIND_ADDR", "127.0.0.1"),
		Port:            getEnvAsInt("PORT", 5000),
		ModelPath:       getEnv("MODEL_PATH", filepath.Join(".", "models", "best.onnx")),
		ModelConfigPath: getEnv("MODEL_CONFIG_PATH", ""),
		ClassNames:      getEnvAsList("CLASS_NAMES", []string{"pothole"}),
		Confidence:      getEnvAsFloat("CONFIDENCE", 0.30),
		IoU:             getEnvAsFloat("IOU", 0.6),
		MaxDetections:   getEnvAsInt("MAX_DETECTIONS", 20),
		ImageSize:       getEnvAsInt("IMAGE_SIZE", 640),
		CameraIndex:     getEnvAsInt("CAMERA_INDEX", 0), // try 1 or 2 if the webcam doesn't open
		StaticDirectory: getEnv("STATIC_DIR", "static"),
		DBPath:          getEnv("DB_PATH", filepath.Join(".", "data", "runs.db")),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),
		UploadRateLimit: getEnvAsInt("UPLOAD_RATE_LIMIT", 30),
		MaxUploadMB:     getEnvAsInt("MAX_UPLOAD_MB", 0),
		StreamBuffer:    getEnvAsInt("STREAM_BUFFER", 2),
		TargetNoun:      getEnv("TARGET_NOUN", "Potholes"),
	}
}

// UploadDirectory is where uploaded inputs are kept.
func (c *Config) UploadDirectory() string {
	return filepath.Join(c.StaticDirectory, "uploads")
}

// MaxUploadBytes is the upload body cap in bytes, or 0 when uploads are unbounded.
func (c *Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 0
	}
	return int64(c.MaxUploadMB) << 20
}

// ResultDirectory holds one subdirectory per detection run.
func (c *Config) ResultDirectory() string {
	return filepath.Join(c.StaticDirectory, "results")
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
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
