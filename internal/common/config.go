package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/pageocr/constants"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	OCR      OCRConfig
	Pipeline PipelineConfig
}

// ServerConfig holds transport-related configuration
type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string // health only; empty disables the gRPC listener
	MaxUploadBytes  int64
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int // requests per minute per client IP; 0 disables
	AllowedOrigins  []string
}

// OCRConfig holds the locations and knobs of the external engines
type OCRConfig struct {
	Engine        string // "tesseract" (CLI) or "tessapi" (in-process, build tag)
	Tesseract     string
	Pdftoppm      string
	TessdataDir   string
	HeicConverter string
	TempDir       string
}

// PipelineConfig holds the page-processing defaults
type PipelineConfig struct {
	DPI       int
	ColorMode string
	Mode      string
	Language  string
	Workers   int // 0 = runtime.NumCPU()
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is applied first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:        getEnv("GRPC_ADDR", ""),
			MaxUploadBytes:  getEnvAsInt64("MAX_UPLOAD_BYTES", 50<<20),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			RateLimit:       getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		OCR: OCRConfig{
			Engine:        getEnv("OCR_ENGINE", "tesseract"),
			Tesseract:     getEnv("TESSERACT_PATH", "tesseract"),
			Pdftoppm:      getEnv("PDFTOPPM_PATH", "pdftoppm"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			HeicConverter: getEnv("HEIC_CONVERTER", "magick"),
			TempDir:       getEnv("OCR_TEMP_DIR", os.TempDir()),
		},
		Pipeline: PipelineConfig{
			DPI:       getEnvAsInt("OCR_DPI", constants.DefaultDPI),
			ColorMode: getEnv("OCR_COLOR_MODE", constants.ColorGrayscale),
			Mode:      getEnv("OCR_CONCURRENCY_MODE", constants.ModeParallel),
			Language:  getEnv("OCR_LANG", constants.DefaultLanguage),
			Workers:   getEnvAsInt("OCR_WORKERS", 0),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
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
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("HTTP_ADDR", c.Server.HTTPAddr, Required).
		Field("TESSERACT_PATH", c.OCR.Tesseract, Required).
		Field("PDFTOPPM_PATH", c.OCR.Pdftoppm, Required).
		Field("OCR_LANG", c.Pipeline.Language, Required, LanguageCode).
		Field("OCR_DPI", c.Pipeline.DPI, IntRange(1, constants.MaxDPI)).
		Field("OCR_COLOR_MODE", c.Pipeline.ColorMode, OneOf(constants.ColorGrayscale, constants.ColorFull)).
		Field("OCR_CONCURRENCY_MODE", c.Pipeline.Mode, OneOf(constants.ModeParallel, constants.ModeSequential)).
		Field("OCR_WORKERS", c.Pipeline.Workers, IntRange(0, 1024)).
		Field("MAX_UPLOAD_BYTES", int(c.Server.MaxUploadBytes), IntRange(1, int(^uint(0)>>1)))
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
