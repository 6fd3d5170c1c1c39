package config

import (
	"os"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	UseMemoryStore bool
	GCPProject     string
}

// NewConfig loads configuration from environment variables
func NewConfig() *Config {
	cfg := &Config{
		Port:       getEnv("PORT", "8112"),
		Env:        getEnv("ENV", "local"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		GCPProject: getEnv("GOOGLE_CLOUD_PROJECT", ""),
	}
	cfg.UseMemoryStore = getEnv("USE_MEMORY_STORE", "") == "true" || cfg.Env == "local"
	return cfg
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
