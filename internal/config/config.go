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
	TimeZoneLabel string

	// Optional shared token gating the webchat routes.
	WebchatToken string

	// Session store selection: "memory" or "redis".
	SessionStoreBackend string
	SessionTTL          time.Duration
	RedisAddr           string
	RedisPassword       string
	RedisTLS            bool

	// Transcript archive (optional).
	DatabaseURL string

	// LLM provider selection: "bedrock", "gemini", "none".
	LLMProvider          string
	BedrockModelID       string
	GeminiAPIKey         string
	GeminiModelID        string
	ClassifierConfidence float64

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		TimeZoneLabel: getEnv("TIME_ZONE_LABEL", "IST"),
		WebchatToken:  getEnv("WEBCHAT_TOKEN", ""),

		SessionStoreBackend: strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", "memory"))),
		SessionTTL:          getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		RedisAddr:           getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisTLS:            getEnvAsBool("REDIS_TLS", false),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		LLMProvider:          strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "none"))),
		BedrockModelID:       getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:        getEnv("GEMINI_MODEL_ID", ""),
		ClassifierConfidence: getEnvAsFloat("CLASSIFIER_CONFIDENCE", 0.5),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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
