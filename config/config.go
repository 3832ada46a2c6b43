package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	PORT       string
	DB_URL     string
	JWT_SECRET string

	OIDC_ISSUER    string
	OIDC_CLIENT_ID string

	MP_ACCESS_TOKEN string
	MP_BASE_URL     string

	AMQP_URL       string
	ALERT_EXCHANGE string

	CORS_ORIGIN string
	LOG_LEVEL   string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")

	// When OIDC_ISSUER is set, bearer tokens are verified against the
	// identity provider instead of the shared HMAC secret.
	OIDC_ISSUER = getEnv("OIDC_ISSUER", "")
	OIDC_CLIENT_ID = getEnv("OIDC_CLIENT_ID", "")

	MP_ACCESS_TOKEN = mustEnv("MP_ACCESS_TOKEN")
	MP_BASE_URL = getEnv("MP_BASE_URL", "https://api.mercadopago.com")

	AMQP_URL = getEnv("AMQP_URL", "")
	ALERT_EXCHANGE = getEnv("ALERT_EXCHANGE", "entitlement.alerts")

	CORS_ORIGIN = getEnv("CORS_ORIGIN", "*")
	LOG_LEVEL = getEnv("LOG_LEVEL", "info")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
