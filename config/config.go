package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// AppConfig holds the environment-driven settings for the gateway.
type AppConfig struct {
	Port        string
	SupabaseURL string
	SupabaseKey string
	LogLevel    string
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		// Not an error: production supplies real environment variables.
		fmt.Fprintln(os.Stderr, "No .env file found, using system env")
	}

	cfg := &AppConfig{
		Port:        getEnv("PORT", "8080"),
		SupabaseURL: os.Getenv("SUPABASE_URL"),
		SupabaseKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
	if cfg.SupabaseKey == "" {
		cfg.SupabaseKey = os.Getenv("SUPABASE_ANON_KEY")
	}

	if cfg.SupabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseKey == "" {
		return nil, fmt.Errorf("SUPABASE_SERVICE_KEY or SUPABASE_ANON_KEY is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
