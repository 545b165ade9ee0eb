package embedding

import (
	"os"
	"strconv"
)

type Config struct {
	Enabled   bool
	Model     string
	MaxLength *int
	BaseURL   string
}

func LoadConfigFromEnv() Config {
	cfg := Config{
		Enabled: os.Getenv("EMBEDDING_ENABLED") == "true",
		Model:   os.Getenv("EMBEDDING_MODEL"),
		BaseURL: os.Getenv("EMBEDDING_BASE_URL"),
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if maxLen := os.Getenv("EMBEDDING_MAX_LENGTH"); maxLen != "" {
		if val, err := strconv.Atoi(maxLen); err == nil {
			cfg.MaxLength = &val
		}
	}
	return cfg
}
