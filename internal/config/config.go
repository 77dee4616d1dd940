package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the agent console binary.
type Config struct {
	GatewayURL     string
	NotifURL       string
	AccessToken    string
	ControlAddr    string
	AllowedOrigins []string
	LogLevel       string
	RequestTimeout time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		GatewayURL:     getEnv("GATEWAY_URL", "http://localhost:8080"),
		NotifURL:       getEnv("NOTIF_URL", "http://localhost:8080/ws"),
		AccessToken:    getEnv("ACCESS_TOKEN", ""),
		ControlAddr:    getEnv("CONTROL_ADDR", ":9090"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	requestTimeout, err := strconv.Atoi(getEnv("REQUEST_TIMEOUT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	config.RequestTimeout = time.Duration(requestTimeout) * time.Second

	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
