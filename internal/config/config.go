package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// OpenAI
	OpenAIAPIKey     string
	OpenAIAPIBaseURL string

	// Airtable
	AirtableAPIKey     string
	AirtableAPIBaseURL string
	AirtableBaseID     string
	AirtableTableName  string

	// Storage
	SupabaseURL        string
	SupabaseServiceKey string
	StorageBucket      string
	StoragePublicURL   string

	// Server
	Port        string
	Environment string
}

func Load() (*Config, error) {
	// .env is optional; deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIAPIBaseURL: getEnv("OPENAI_API_BASE_URL", "https://api.openai.com/v1"),

		AirtableAPIKey:     getEnv("AIRTABLE_API_KEY", ""),
		AirtableAPIBaseURL: getEnv("AIRTABLE_API_BASE_URL", "https://api.airtable.com/v0"),
		AirtableBaseID:     getEnv("AIRTABLE_BASE_ID", ""),
		AirtableTableName:  getEnv("AIRTABLE_TABLE_NAME", ""),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		StorageBucket:      getEnv("STORAGE_BUCKET", "submission-images"),
		StoragePublicURL:   getEnv("STORAGE_PUBLIC_URL", ""),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.AirtableAPIKey == "" {
		return fmt.Errorf("AIRTABLE_API_KEY is required")
	}
	if c.AirtableBaseID == "" {
		return fmt.Errorf("AIRTABLE_BASE_ID is required")
	}
	if c.AirtableTableName == "" {
		return fmt.Errorf("AIRTABLE_TABLE_NAME is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if c.StoragePublicURL == "" {
		return fmt.Errorf("STORAGE_PUBLIC_URL is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
