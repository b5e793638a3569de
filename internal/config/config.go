package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       string
	DBDriver   string
	DatabaseURL string
	SQLitePath string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	PredictTimeout time.Duration

	LogLevel string

	RateLimitPerMinute int
	RateLimitBurst     int

	OTLPEndpoint string
}

// Load reads configuration from the environment, after loading a .env
// file when one is present. Missing keys fall back to defaults that
// run the service against a local SQLite file.
func Load() Config {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "restaurant_queue.db"
	}

	return Config{
		Port:        port,
		DBDriver:    driver,
		DatabaseURL: os.Getenv("DB_DSN"),
		SQLitePath:  sqlitePath,

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		PredictTimeout: readDurationSeconds("PREDICT_TIMEOUT_SECONDS", 8),

		LogLevel: os.Getenv("LOG_LEVEL"),

		RateLimitPerMinute: readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:     readInt("RATE_LIMIT_BURST", 30),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
