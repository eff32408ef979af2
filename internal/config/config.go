package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Environment string
	ServerPort  string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string

	// Verification provider (one-time codes).
	VerifyBaseURL string
	VerifyAPIKey  string
	VerifyDryRun  bool

	// Billing provider (hosted checkout + signed webhooks).
	BillingBaseURL       string
	BillingAPIKey        string
	BillingSigningSecret string
	BillingPriceRef      string
	BillingDryRun        bool

	// Telephony provider (number provisioning + SMS).
	TelephonyBaseURL string
	TelephonyAPIKey  string
	TelephonyRegion  string
	VoiceWebhookURL  string
	TelephonyDryRun  bool

	// Subscription plan.
	PlanPrice    decimal.Decimal
	PlanTermDays int

	SwaggerHost string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		MySQLDSN:    getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),

		VerifyBaseURL: getEnv("VERIFY_BASE_URL", "https://verify.example.com/v2"),
		VerifyAPIKey:  os.Getenv("VERIFY_API_KEY"),
		VerifyDryRun:  getEnvBool("VERIFY_DRY_RUN", false),

		BillingBaseURL:       getEnv("BILLING_BASE_URL", "https://billing.example.com/v1"),
		BillingAPIKey:        os.Getenv("BILLING_API_KEY"),
		BillingSigningSecret: os.Getenv("BILLING_SIGNING_SECRET"),
		BillingPriceRef:      getEnv("BILLING_PRICE_REF", "price_monthly_forwarding"),
		BillingDryRun:        getEnvBool("BILLING_DRY_RUN", false),

		TelephonyBaseURL: getEnv("TELEPHONY_BASE_URL", "https://telephony.example.com/v1"),
		TelephonyAPIKey:  os.Getenv("TELEPHONY_API_KEY"),
		TelephonyRegion:  getEnv("TELEPHONY_REGION", "US"),
		VoiceWebhookURL:  getEnv("VOICE_WEBHOOK_URL", "http://localhost:8080/api/voice/inbound"),
		TelephonyDryRun:  getEnvBool("TELEPHONY_DRY_RUN", false),

		PlanPrice:    getEnvDecimal("PLAN_PRICE", "9.99"),
		PlanTermDays: getEnvInt("PLAN_TERM_DAYS", 30),

		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDecimal(key, def string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if parsed, err := decimal.NewFromString(v); err == nil {
			return parsed
		}
	}
	d, _ := decimal.NewFromString(def)
	return d
}
