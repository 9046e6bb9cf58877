package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURI    string
	TelegramToken  string
	WebhookSecret  string
	TaskAPIURL     string
	TaskAPITimeout time.Duration
	ListenAddr     string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	return &Config{
		DatabaseURI:    os.Getenv("DATABASE_URI"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		WebhookSecret:  os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
		TaskAPIURL:     os.Getenv("TASK_API_URL"),
		TaskAPITimeout: time.Duration(getEnvIntOrDefault("TASK_API_TIMEOUT", 10)) * time.Second,
		ListenAddr:     getEnvOrDefault("LISTEN_ADDR", ":8080"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
