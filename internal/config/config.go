// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	ServerPort   string
	DBDriver     string
	DatabaseDSN  string
	JWTSecretKey string
	// Chunk size used when importing message batches.
	ImportBatchSize int
	// Ingestion requests allowed per client per minute.
	IngestRateLimit int
	// Key rate limits on X-Forwarded-For/X-Real-IP; only behind a trusted proxy.
	TrustProxyHeaders bool
	TelegramBotToken  string
	ReportWindowDays  int
	LogLevel          string
	Environment       string
}

// Load reads configuration from environment variables or .env file.
func Load() *Config {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DatabaseDSN:       getEnv("DATABASE_DSN", "history.db"),
		JWTSecretKey:      getEnv("JWT_SECRET_KEY", ""),
		ImportBatchSize:   getEnvAsInt("IMPORT_BATCH_SIZE", 500),
		IngestRateLimit:   getEnvAsInt("INGEST_RATE_LIMIT", 120),
		TrustProxyHeaders: getEnvAsBool("TRUST_PROXY_HEADERS", false),
		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		ReportWindowDays:  getEnvAsInt("REPORT_WINDOW_DAYS", 30),
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
		Environment:       env,
	}
}

// IsProduction reports whether ENV=production.
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// Validate checks values every binary relies on. Production additionally
// requires the ingestion secret.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want %s or %s)", c.DBDriver, DriverSQLite, DriverPostgres)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}
	if c.ImportBatchSize < 1 || c.ImportBatchSize > 1000 {
		return fmt.Errorf("IMPORT_BATCH_SIZE must be between 1 and 1000")
	}
	if c.IngestRateLimit < 1 {
		return fmt.Errorf("INGEST_RATE_LIMIT must be positive")
	}
	if c.ReportWindowDays < 1 {
		return fmt.Errorf("REPORT_WINDOW_DAYS must be positive")
	}

	if c.IsProduction() {
		missing := []string{}
		if c.JWTSecretKey == "" {
			missing = append(missing, "JWT_SECRET_KEY")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required production environment variables: %v", missing)
		}
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

// getEnvAsBool gets an env var as a boolean, with a fallback.
func getEnvAsBool(key string, defaultValue bool) bool {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as boolean. Using default value.", key)
		return defaultValue
	}
	return boolValue
}
