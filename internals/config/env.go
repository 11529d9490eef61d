package config

import (
	"log"
	"os"
	"strconv"
)

// GetEnv fetches a key or returns an empty string.
// Critical env vars should use this function.
func GetEnv(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	log.Printf("Critical: Environment variable %s not set\n", key)
	return ""
}

// GetEnvAsStr fetches a key or returns a fallback value.
func GetEnvAsStr(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvAsInt fetches a key as a positive integer or returns a fallback value.
func GetEnvAsInt(key string, fallback int) int {
	if valueStr, ok := os.LookupEnv(key); ok {
		if value, err := strconv.Atoi(valueStr); err == nil && value > 0 {
			return value
		}
		log.Printf("Warning: Environment variable %s is not a positive integer, using fallback\n", key)
	}
	return fallback
}
