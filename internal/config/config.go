package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// DecisionSecret signs confirm/decline links. Empty disables the
	// decision-link feature entirely.
	DecisionSecret string
	// DecisionWebhookSecret authenticates the automation webhook that
	// applies decisions without a signed link.
	DecisionWebhookSecret string
	// BookingWebhookURL receives fire-and-forget notifications when a
	// booking request is created or decided.
	BookingWebhookURL     string
	BookingWebhookTimeout time.Duration

	AdminJWTSecret     string
	CORSAllowedOrigins []string

	// Daily booking grid.
	OpenHour        int
	CloseHour       int
	LunchStartHour  int
	LunchEndHour    int
	SlotStepMinutes int

	ConfirmSLA    time.Duration
	SweepInterval time.Duration

	CreateRatePerSec float64
	CreateRateBurst  int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		DecisionSecret:        getEnv("DECISION_SECRET", ""),
		DecisionWebhookSecret: getEnv("DECISION_WEBHOOK_SECRET", ""),
		BookingWebhookURL:     getEnv("BOOKING_WEBHOOK_URL", ""),
		BookingWebhookTimeout: getEnvAsDuration("BOOKING_WEBHOOK_TIMEOUT", 3*time.Second),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		OpenHour:        getEnvAsInt("BOOKING_OPEN_HOUR", 9),
		CloseHour:       getEnvAsInt("BOOKING_CLOSE_HOUR", 18),
		LunchStartHour:  getEnvAsInt("BOOKING_LUNCH_START_HOUR", 12),
		LunchEndHour:    getEnvAsInt("BOOKING_LUNCH_END_HOUR", 13),
		SlotStepMinutes: getEnvAsInt("BOOKING_SLOT_STEP_MINUTES", 15),

		ConfirmSLA:    getEnvAsDuration("BOOKING_CONFIRM_SLA", time.Hour),
		SweepInterval: getEnvAsDuration("BOOKING_SWEEP_INTERVAL", 5*time.Minute),

		CreateRatePerSec: getEnvAsFloat("BOOKING_CREATE_RATE_PER_SEC", 2),
		CreateRateBurst:  getEnvAsInt("BOOKING_CREATE_RATE_BURST", 10),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
