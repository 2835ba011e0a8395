package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Cache    CacheConfig
	Queue    QueueConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string // postgres DSN, or empty to use SQLitePath
	SQLitePath       string // local embedded store for dev mode
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr   string
	HealthAddr string // gRPC health endpoint, empty disables it
	BodyLimit  int
}

// OCRConfig holds extraction tooling configuration
type OCRConfig struct {
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	DPI           int
	VisionDPI     int
	MaxPages      int
	PSM           int
}

// LLMConfig holds reasoning-service configuration
type LLMConfig struct {
	Enabled           bool
	Model             string
	APIKey            string
	BaseURL           string
	Temperature       float32
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerMinute int
	TokensPerMinute   int
	RequestsPerDay    int
	TokensPerDay      int
}

// CacheConfig holds result-cache configuration
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// QueueConfig holds worker-queue configuration
type QueueConfig struct {
	Workers        int
	Size           int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", "./intake.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:   getEnv("HTTP_ADDR", ":8000"),
			HealthAddr: getEnv("HEALTH_GRPC_ADDR", ""),
			BodyLimit:  getEnvAsInt("HTTP_BODY_LIMIT", 12*1024*1024),
		},
		OCR: OCRConfig{
			Pdftotext:     getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("OCR_DPI", 200),
			VisionDPI:     getEnvAsInt("VISION_DPI", 150),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
			PSM:           getEnvAsInt("TESSERACT_PSM", 6),
		},
		LLM: LLMConfig{
			Enabled:           getEnvAsBool("ENABLE_AI", true),
			Model:             getEnv("OPENAI_MODEL", "gpt-4o"),
			APIKey:            getEnv("OPENAI_API_KEY", ""),
			BaseURL:           getEnv("OPENAI_BASE_URL", ""),
			Temperature:       getEnvAsFloat32("OPENAI_TEMPERATURE", 0.1),
			MaxTokens:         getEnvAsInt("OPENAI_MAX_TOKENS", 1000),
			Timeout:           getEnvAsDuration("OPENAI_TIMEOUT", 45*time.Second),
			RequestsPerMinute: getEnvAsInt("LLM_REQUESTS_PER_MINUTE", 60),
			TokensPerMinute:   getEnvAsInt("LLM_TOKENS_PER_MINUTE", 90000),
			RequestsPerDay:    getEnvAsInt("LLM_REQUESTS_PER_DAY", 5000),
			TokensPerDay:      getEnvAsInt("LLM_TOKENS_PER_DAY", 2000000),
		},
		Cache: CacheConfig{
			Enabled: getEnvAsBool("RESULT_CACHE_ENABLED", true),
			TTL:     getEnvAsDuration("RESULT_CACHE_TTL", time.Hour),
		},
		Queue: QueueConfig{
			Workers:        getEnvAsInt("QUEUE_WORKERS", 6),
			Size:           getEnvAsInt("QUEUE_SIZE", 512),
			ProcessTimeout: getEnvAsDuration("QUEUE_PROCESS_TIMEOUT", 3*time.Minute),
		},
	}
}

// Validate checks required configuration and cross-field consistency.
func (c *Config) Validate() error {
	if c.Database.DSN == "" && c.Database.SQLitePath == "" {
		return NewAppError("CONFIG_ERROR", "one of DB_URL or SQLITE_PATH is required", ErrInvalidInput)
	}
	if c.LLM.Enabled && c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required when ENABLE_AI=true", ErrInvalidInput)
	}
	if c.OCR.DPI <= 0 || c.OCR.VisionDPI <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_DPI and VISION_DPI must be positive", ErrInvalidInput)
	}
	return nil
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
