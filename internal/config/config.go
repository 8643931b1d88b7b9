package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend API
	APIBaseURL string
	APITimeout time.Duration

	// Data shaping
	ReceiptsFetchLimit int
	TrendsMonths       int
	TopItemsLimit      int

	// Backend selection
	DataBackend string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:5000/api"),
		APITimeout: getEnvDuration("API_TIMEOUT", 15*time.Second),

		ReceiptsFetchLimit: getEnvInt("RECEIPTS_FETCH_LIMIT", 100),
		TrendsMonths:       getEnvInt("TRENDS_MONTHS", 12),
		TopItemsLimit:      getEnvInt("TOP_ITEMS_LIMIT", 10),

		DataBackend: getEnv("DATA_BACKEND", "api"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"api", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate API base URL if backend is api
	if c.DataBackend == "api" {
		if c.APIBaseURL == "" {
			errors = append(errors, "API base URL cannot be empty when using api backend")
		} else if parsedURL, err := url.Parse(c.APIBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	if c.APITimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be at least 1 second", c.APITimeout))
	} else if c.APITimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be at most 5 minutes", c.APITimeout))
	}

	if c.ReceiptsFetchLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid receipts fetch limit %d: must be at least 1", c.ReceiptsFetchLimit))
	} else if c.ReceiptsFetchLimit > 1000 {
		errors = append(errors, fmt.Sprintf("invalid receipts fetch limit %d: must be at most 1000", c.ReceiptsFetchLimit))
	}

	if c.TrendsMonths < 1 || c.TrendsMonths > 60 {
		errors = append(errors, fmt.Sprintf("invalid trends months %d: must be between 1 and 60", c.TrendsMonths))
	}

	if c.TopItemsLimit < 1 || c.TopItemsLimit > 100 {
		errors = append(errors, fmt.Sprintf("invalid top items limit %d: must be between 1 and 100", c.TopItemsLimit))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
