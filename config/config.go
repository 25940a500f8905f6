package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	AppURL    string
	JWTKey    string
	SaltRound int

	// Transactional email (SendGrid)
	SendgridKey string
	EmailFrom   string
	EmailName   string
	ReplyTo     string

	// Billing provider webhooks
	BillingWebhookSecret string

	// Video hosting provider
	VideoApiURL      string
	VideoApiToken    string
	VideoApiSecret   string
	PlaybackTokenTTL int // seconds
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		AppURL:    getEnv("APP_URL", "http://localhost:3000"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		SendgridKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:   getEnv("EMAIL_FROM", "postmaster@localhost"),
		EmailName:   getEnv("EMAIL_FROM_NAME", "AI Systems Architect"),
		ReplyTo:     getEnv("EMAIL_REPLY_TO", "support@localhost"),

		BillingWebhookSecret: getEnv("BILLING_WEBHOOK_SECRET", ""),

		VideoApiURL:      getEnv("VIDEO_API_URL", "https://api.mux.com"),
		VideoApiToken:    getEnv("VIDEO_API_TOKEN", ""),
		VideoApiSecret:   getEnv("VIDEO_API_SECRET", ""),
		PlaybackTokenTTL: getEnvInt("PLAYBACK_TOKEN_TTL", 3600),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.SendgridKey == "" {
		log.Println("Warning: SENDGRID_API_KEY not set - emails will be logged, not sent.")
	}
	if AppConfig.BillingWebhookSecret == "" {
		log.Println("Warning: BILLING_WEBHOOK_SECRET not set - webhook signatures will not verify.")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
