package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Supported database drivers
const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
	DBDriverLibSQL   = "libsql"
)

const (
	// DefaultMaxUploadSize is 10MB
	DefaultMaxUploadSize = 10 << 20
)

type Config struct {
	ServerPort  string
	Environment string
	// Database
	DBDriver         string
	DBPath           string
	DatabaseURL      string
	TursoDatabaseURL string
	TursoAuthToken   string
	// Redis (optional, backs the case code sequence counter)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Attachments
	UploadDir     string
	MaxUploadSize int64
	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged to console instead of sent
	// Cloudflare R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	// Lifecycle
	StrictTransitions bool
	// Cloudflare Turnstile (CAPTCHA on public intake, optional)
	TurnstileSecretKey string
	// Other
	AllowedOrigins    []string
	PublicIntakeLimit int // public intake submissions per minute per IP
	PublicLookupLimit int // public case lookups per minute per IP
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		DBDriver:           strings.ToLower(getEnv("DB_DRIVER", DBDriverSQLite)),
		DBPath:             getEnv("DB_PATH", "db/app.db"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		TursoDatabaseURL:   getEnv("TURSO_DATABASE_URL", ""),
		TursoAuthToken:     getEnv("TURSO_AUTH_TOKEN", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadSize:      int64(getEnvInt("MAX_UPLOAD_SIZE", DefaultMaxUploadSize)),
		ResendAPIKey:       getEnv("RESEND_API_KEY", ""),
		EmailFrom:          getEnv("EMAIL_FROM", "noreply@example.org"),
		EmailFromName:      getEnv("EMAIL_FROM_NAME", "Case Registry"),
		EmailTestMode:      getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		R2AccountID:        getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:      getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:  getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:       getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:        getEnv("R2_PUBLIC_URL", ""),
		StrictTransitions:  getEnvBool("STRICT_TRANSITIONS", false),
		TurnstileSecretKey: getEnv("TURNSTILE_SECRET_KEY", ""),
		AllowedOrigins:     strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		PublicIntakeLimit:  getEnvInt("PUBLIC_INTAKE_LIMIT", 10),
		PublicLookupLimit:  getEnvInt("PUBLIC_LOOKUP_LIMIT", 60),
	}
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// R2Configured reports whether every R2 credential is present
func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Printf("Using default value for %s: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[WARNING] Invalid integer for %s (%q), using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
