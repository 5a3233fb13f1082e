package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	CoeffsPath      string
	CoeffsName      string
	DatabaseURL     string
	EnableDB        bool
	LogLevel        string
	LogFile         string
	SessionCapacity int
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		CoeffsPath:  getEnv("COEFFS_PATH", "data/model_coeffs.json"),
		CoeffsName:  getEnv("COEFFS_NAME", "default"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		EnableDB:    strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),
	}

	capacity, err := strconv.Atoi(getEnv("SESSION_CAPACITY", "1024"))
	if err != nil || capacity <= 0 {
		return nil, fmt.Errorf("SESSION_CAPACITY must be a positive integer")
	}
	cfg.SessionCapacity = capacity

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
