package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	// Server
	Env  string
	Port string

	// Database
	DatabaseURL string

	// Redis (rate limiting + reminder worker)
	RedisURL string

	// Object storage (Supabase)
	SupabaseURL   string
	SupabaseKey   string
	StorageBucket string

	// Capability credentials
	RapidAPIKey  string
	GeminiAPIKey string
	GeminiModel  string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	SessionSecret      string
	TokenEncryptionKey string

	// Email
	SMTPServer    string
	SMTPPort      int
	EmailAddress  string
	EmailPassword string
	FromName      string

	// Reminder worker
	ReminderSchedule string
	ReminderDays     int

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Env:         getEnvWithDefault("ENV", "development"),
		Port:        getEnvWithDefault("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),

		SupabaseURL:   os.Getenv("SUPABASE_URL"),
		SupabaseKey:   os.Getenv("SUPABASE_KEY"),
		StorageBucket: getEnvWithDefault("STORAGE_BUCKET", "meeting-audio"),

		RapidAPIKey:  os.Getenv("RAPIDAPI_KEY"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnvWithDefault("GEMINI_MODEL", "gemini-2.0-flash-exp"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		TokenEncryptionKey: os.Getenv("TOKEN_ENCRYPTION_KEY"),

		SMTPServer:    getEnvWithDefault("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:      getEnvIntWithDefault("SMTP_PORT", 587),
		EmailAddress:  os.Getenv("EMAIL_ADDRESS"),
		EmailPassword: os.Getenv("EMAIL_PASSWORD"),
		FromName:      getEnvWithDefault("FROM_NAME", "AI Meeting Assistant"),

		ReminderSchedule: getEnvWithDefault("REMINDER_SCHEDULE", "0 8 * * *"),
		ReminderDays:     getEnvIntWithDefault("REMINDER_DAYS", 7),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),
	}

	// Warn if using default session secret (insecure for production)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"
		log.Println("WARNING: Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	return cfg
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("WARNING: invalid integer for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
