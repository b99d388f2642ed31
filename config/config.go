// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// API Configuration
	APIPort        string
	APIHost        string
	APIEnvironment string

	// DynamoDB
	AWSRegion        string
	DynamoEndpoint   string
	LeadsTable       string
	UsersTable       string
	LeadsByDateIndex string

	// Redis
	RedisURL string

	// JWT & Security
	JWTSecret          string
	JWTExpirationHours int

	// Listing
	PageSize int

	// Postal lookup
	PincodeAPIBaseURL string

	// CORS
	CORSAllowedOrigins []string

	// Rate Limiting
	RateLimitRequestsPerMinute int
	RateLimitBurst             int

	// Sentry
	SentryDSN         string
	SentryEnvironment string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables. A local .env file
// is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// API
		APIPort:        getEnv("API_PORT", "8080"),
		APIHost:        getEnv("API_HOST", "0.0.0.0"),
		APIEnvironment: getEnv("API_ENVIRONMENT", "development"),

		// DynamoDB
		AWSRegion:        getEnv("AWS_REGION", "ap-south-1"),
		DynamoEndpoint:   getEnv("DYNAMO_ENDPOINT", ""),
		LeadsTable:       getEnv("LEADS_TABLE", "leadadmin-leads"),
		UsersTable:       getEnv("USERS_TABLE", "leadadmin-users"),
		LeadsByDateIndex: getEnv("LEADS_BY_DATE_INDEX", "by_date"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		// JWT
		JWTSecret:          getEnv("JWT_SECRET", "change-this-in-production"),
		JWTExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),

		// Listing
		PageSize: getEnvAsInt("PAGE_SIZE", 20),

		// Postal lookup
		PincodeAPIBaseURL: getEnv("PINCODE_API_BASE_URL", "https://api.postalpincode.in"),

		// CORS
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		// Rate Limiting
		RateLimitRequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 120),
		RateLimitBurst:             getEnvAsInt("RATE_LIMIT_BURST", 20),

		// Sentry
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "development"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			values = append(values, t)
		}
	}
	return values
}
