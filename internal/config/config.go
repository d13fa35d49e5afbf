package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string

	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	RedisURL string

	JWTSecret string

	CORSOrigins string

	ResendAPIKey string
	FromEmail    string
	Domain       string

	FirebaseCredentialsFile string

	SmsGatewayURL string
	SmsAPIKey     string
	SmsSender     string

	GroupingWindow    time.Duration
	Retention         time.Duration
	ReaperSchedule    string
	WorkerConcurrency int
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBMaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:5173"),

		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		FromEmail:    getEnv("FROM_EMAIL", "noreply@travelmate.example"),
		Domain:       getEnv("DOMAIN", "localhost:5173"),

		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),

		SmsGatewayURL: getEnv("SMS_GATEWAY_URL", ""),
		SmsAPIKey:     getEnv("SMS_API_KEY", ""),
		SmsSender:     getEnv("SMS_SENDER", "TravelMate"),

		GroupingWindow:    getDurationEnv("NOTIFICATION_GROUPING_WINDOW", 24*time.Hour),
		Retention:         getDurationEnv("NOTIFICATION_RETENTION", 30*24*time.Hour),
		ReaperSchedule:    getEnv("NOTIFICATION_REAPER_SCHEDULE", "@every 1h"),
		WorkerConcurrency: getIntEnv("WORKER_CONCURRENCY", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
