package config

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

type Config struct {
	CompletionsAPIURL string
	CompletionsAPIKey string
	CompletionsModel  string

	CredentialsPath string
	TokenPath       string

	DaysToProcess         int
	EnableReplyGeneration bool

	RateLimit         int
	RateLimitInterval int
	MaxRetries        int

	APIPort       string
	CSVOutputPath string
}

func getEnv(key, defaultValue string, printEnv bool) string {
	logger := log.Default()
	value := os.Getenv(key)
	if printEnv {
		logger.Info("Env", "key", key, "value", value)
	}
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int, printEnv bool) int {
	value := getEnv(key, "", printEnv)
	if value == "" {
		return defaultValue
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool, printEnv bool) bool {
	switch getEnv(key, "", printEnv) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultValue
}

func LoadConfig(printEnv bool) (*Config, error) {
	_ = godotenv.Load()

	conf := &Config{
		CompletionsAPIURL:     getEnv("COMPLETIONS_API_URL", "https://api.openai.com/v1", printEnv),
		CompletionsAPIKey:     getEnv("COMPLETIONS_API_KEY", "", printEnv),
		CompletionsModel:      getEnv("COMPLETIONS_MODEL", "gpt-4.1-mini", printEnv),
		CredentialsPath:       getEnv("GOOGLE_CREDENTIALS_PATH", "credentials.json", printEnv),
		TokenPath:             getEnv("GOOGLE_TOKEN_PATH", "token.json", printEnv),
		DaysToProcess:         getEnvInt("DAYS_TO_PROCESS", 7, printEnv),
		EnableReplyGeneration: getEnvBool("ENABLE_REPLY_GENERATION", true, printEnv),
		RateLimit:             getEnvInt("GENERATION_RATE_LIMIT", 10, printEnv),
		RateLimitInterval:     getEnvInt("GENERATION_RATE_INTERVAL", 60, printEnv),
		MaxRetries:            getEnvInt("GENERATION_MAX_RETRIES", 5, printEnv),
		APIPort:               getEnv("API_PORT", "8000", printEnv),
		CSVOutputPath:         getEnv("CSV_OUTPUT_PATH", "output/emails_%s.csv", printEnv),
	}

	return conf, nil
}
