// Package config loads server settings from an optional .env file and the
// environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/warp/ctr-mapper/logger"
)

type Config struct {
	Port            string
	UploadDir       string
	LogLevel        string
	LogFormat       logger.Format
	FileRetention   time.Duration
	CleanupInterval time.Duration
	MaxUploadBytes  int64
	Workers         int
	AllowedOrigins  []string

	// Uploads are admitted at one per UploadInterval with bursts of UploadBurst.
	UploadInterval time.Duration
	UploadBurst    int
}

// Load reads the given .env files (".env" when none are named) and then the
// environment. Existing environment variables win over .env values. Invalid
// values are logged and replaced by their defaults.
func Load(log zerolog.Logger, envFiles ...string) *Config {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded, using environment and defaults")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       logger.Format(getEnv("LOG_FORMAT", string(logger.FormatConsole))),
		FileRetention:   getEnvAsDuration(log, "FILE_RETENTION", time.Hour),
		CleanupInterval: getEnvAsDuration(log, "CLEANUP_INTERVAL", 10*time.Minute),
		MaxUploadBytes:  getEnvAsInt64(log, "MAX_UPLOAD_BYTES", 50<<20),
		Workers:         int(getEnvAsInt64(log, "WORKERS", 2)),
		AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		UploadInterval:  getEnvAsDuration(log, "UPLOAD_INTERVAL", 100*time.Millisecond),
		UploadBurst:     int(getEnvAsInt64(log, "UPLOAD_BURST", 30)),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvAsDuration(log zerolog.Logger, key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Dur("default", fallback).Msg("invalid duration, using default")
		return fallback
	}
	return d
}

func getEnvAsInt64(log zerolog.Logger, key string, fallback int64) int64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Int64("default", fallback).Msg("invalid number, using default")
		return fallback
	}
	return n
}

func getEnvAsList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
