package config

import (
	"os"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errorString string
	}{
		{
			name: "valid api backend config",
			config: Config{
				Port:               "8080",
				DataBackend:        "api",
				APIBaseURL:         "http://localhost:5000/api",
				APITimeout:         15 * time.Second,
				ReceiptsFetchLimit: 100,
				TrendsMonths:       12,
				TopItemsLimit:      10,
			},
			wantErr: false,
		},
		{
			name: "valid memory backend config",
			config: Config{
				Port:               "8080",
				DataBackend:        "memory",
				APITimeout:         15 * time.Second,
				ReceiptsFetchLimit: 100,
				TrendsMonths:       12,
				TopItemsLimit:      10,
			},
			wantErr: false,
		},
		{
			name: "invalid port - non-numeric",
			config: Config{
				Port:               "abc",
				DataBackend:        "memory",
				APITimeout:         15 * time.Second,
				ReceiptsFetchLimit: 100,
				TrendsMonths:       12,
				TopItemsLimit:      10,
			},
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name: "invalid port - out of range low",
			config: Config{
				Port:               "0",
				DataBackend:        "memory",
				APITimeout:         15 * time.Second,
				ReceiptsFetchLimit: 100,
				TrendsMonths:       12,
				TopItemsLimit:      10,
			},
			wantErr:     true,
			errorString: "invalid port 0: must be between 1 and 65535",
		},
		{
			name: "invalid port - out of range high",
			config: Config{
				Port:               "70000",
				DataBackend:        "memory",
				APITimeout:         15 * time.Second,
				ReceiptsFetchLimit: 100,
				TrendsMonths:       12,
				TopItemsLimit:      10,
			},
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name: "invalid data backend",
			config: Config{
				Port:               "8080",
				DataBackend:        "invalid",
				APITimeout:         15 * time.Second,
				ReceiptsFetchLimit: 100,
				TrendsMonths:       12,
				TopItemsLimit:      10,
			},
			wantErr:     true,
			errorString: "invalid data backend 'invalid': must be one of [api memory]",
		},
		{
			name: "api backend missing base URL",
			config: Config{
				Port:               "8080",
				DataBackend:        "api",
				APIBaseURL:         "",
				APITimeout:         15 * time.Second,
				ReceiptsFetchLimit: 100,
				TrendsMonths:       12,
				TopItemsLimit:      10,
			},
			wantErr:     true,
			errorString: "API base URL cannot be empty when using api backend",
		},
		{
			name: "api backend invalid URL",
			config: Config{
				Port:               "8080",
				DataBackend:        "api",
				APIBaseURL:         "://invalid-url",
				APITimeout:         15 * time.Second,
				ReceiptsFetchLimit: 100,
				TrendsMonths:       12,
				TopItemsLimit:      10,
			},
			wantErr:     true,
			errorString: "invalid API base URL",
		},
		{
			name: "api backend invalid URL scheme",
			config: Config{
				Port:               "8080",
				DataBackend:        "api",
				APIBaseURL:         "ftp://localhost:5000/api",
				APITimeout:         15 * time.Second,
				ReceiptsFetchLimit: 100,
				TrendsMonths:       12,
				TopItemsLimit:      10,
			},
			wantErr:     true,
			errorString: "invalid API base URL scheme 'ftp': must be 'http' or 'https'",
		},
		{
			name: "invalid API timeout - too short",
			config: Config{
				Port:               "8080",
				DataBackend:        "memory",
				APITimeout:         500 * time.Millisecond,
				ReceiptsFetchLimit: 100,
				TrendsMonths:       12,
				TopItemsLimit:      10,
			},
			wantErr:     true,
			errorString: "invalid API timeout 500ms: must be at least 1 second",
		},
		{
			name: "invalid API timeout - too long",
			config: Config{
				Port:               "8080",
				DataBackend:        "memory",
				APITimeout:         10 * time.Minute,
				ReceiptsFetchLimit: 100,
				TrendsMonths:       12,
				TopItemsLimit:      10,
			},
			wantErr:     true,
			errorString: "invalid API timeout 10m0s: must be at most 5 minutes",
		},
		{
			name: "invalid receipts fetch limit - too small",
			config: Config{
				Port:               "8080",
				DataBackend:        "memory",
				APITimeout:         15 * time.Second,
				ReceiptsFetchLimit: 0,
				TrendsMonths:       12,
				TopItemsLimit:      10,
			},
			wantErr:     true,
			errorString: "invalid receipts fetch limit 0: must be at least 1",
		},
		{
			name: "invalid receipts fetch limit - too large",
			config: Config{
				Port:               "8080",
				DataBackend:        "memory",
				APITimeout:         15 * time.Second,
				ReceiptsFetchLimit: 2000,
				TrendsMonths:       12,
				TopItemsLimit:      10,
			},
			wantErr:     true,
			errorString: "invalid receipts fetch limit 2000: must be at most 1000",
		},
		{
			name: "invalid trends months",
			config: Config{
				Port:               "8080",
				DataBackend:        "memory",
				APITimeout:         15 * time.Second,
				ReceiptsFetchLimit: 100,
				TrendsMonths:       0,
				TopItemsLimit:      10,
			},
			wantErr:     true,
			errorString: "invalid trends months 0: must be between 1 and 60",
		},
		{
			name: "invalid top items limit",
			config: Config{
				Port:               "8080",
				DataBackend:        "memory",
				APITimeout:         15 * time.Second,
				ReceiptsFetchLimit: 100,
				TrendsMonths:       12,
				TopItemsLimit:      500,
			},
			wantErr:     true,
			errorString: "invalid top items limit 500: must be between 1 and 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else {
				if err != nil {
					t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	// Save original env vars
	originalVars := map[string]string{
		"PORT":                 os.Getenv("PORT"),
		"DATA_BACKEND":         os.Getenv("DATA_BACKEND"),
		"API_BASE_URL":         os.Getenv("API_BASE_URL"),
		"API_TIMEOUT":          os.Getenv("API_TIMEOUT"),
		"RECEIPTS_FETCH_LIMIT": os.Getenv("RECEIPTS_FETCH_LIMIT"),
		"TRENDS_MONTHS":        os.Getenv("TRENDS_MONTHS"),
		"TOP_ITEMS_LIMIT":      os.Getenv("TOP_ITEMS_LIMIT"),
	}

	// Clean environment
	for key := range originalVars {
		os.Unsetenv(key)
	}

	// Restore env vars at end of test
	defer func() {
		for key, value := range originalVars {
			if value != "" {
				os.Setenv(key, value)
			} else {
				os.Unsetenv(key)
			}
		}
	}()

	t.Run("default values", func(t *testing.T) {
		cfg := Load()

		if cfg.Port != "8080" {
			t.Errorf("Load() Port = %v, want 8080", cfg.Port)
		}
		if cfg.DataBackend != "api" {
			t.Errorf("Load() DataBackend = %v, want api", cfg.DataBackend)
		}
		if cfg.APIBaseURL != "http://localhost:5000/api" {
			t.Errorf("Load() APIBaseURL = %v, want http://localhost:5000/api", cfg.APIBaseURL)
		}
		if cfg.APITimeout != 15*time.Second {
			t.Errorf("Load() APITimeout = %v, want 15s", cfg.APITimeout)
		}
		if cfg.ReceiptsFetchLimit != 100 {
			t.Errorf("Load() ReceiptsFetchLimit = %v, want 100", cfg.ReceiptsFetchLimit)
		}
		if cfg.TrendsMonths != 12 {
			t.Errorf("Load() TrendsMonths = %v, want 12", cfg.TrendsMonths)
		}
		if cfg.TopItemsLimit != 10 {
			t.Errorf("Load() TopItemsLimit = %v, want 10", cfg.TopItemsLimit)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		os.Setenv("PORT", "9090")
		os.Setenv("DATA_BACKEND", "memory")
		os.Setenv("API_BASE_URL", "https://tracker.example.com/api")
		os.Setenv("API_TIMEOUT", "30s")
		os.Setenv("RECEIPTS_FETCH_LIMIT", "250")
		os.Setenv("TRENDS_MONTHS", "6")
		os.Setenv("TOP_ITEMS_LIMIT", "25")

		cfg := Load()

		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.DataBackend != "memory" {
			t.Errorf("Load() DataBackend = %v, want memory", cfg.DataBackend)
		}
		if cfg.APIBaseURL != "https://tracker.example.com/api" {
			t.Errorf("Load() APIBaseURL = %v, want https://tracker.example.com/api", cfg.APIBaseURL)
		}
		if cfg.APITimeout != 30*time.Second {
			t.Errorf("Load() APITimeout = %v, want 30s", cfg.APITimeout)
		}
		if cfg.ReceiptsFetchLimit != 250 {
			t.Errorf("Load() ReceiptsFetchLimit = %v, want 250", cfg.ReceiptsFetchLimit)
		}
		if cfg.TrendsMonths != 6 {
			t.Errorf("Load() TrendsMonths = %v, want 6", cfg.TrendsMonths)
		}
		if cfg.TopItemsLimit != 25 {
			t.Errorf("Load() TopItemsLimit = %v, want 25", cfg.TopItemsLimit)
		}
	})

	t.Run("invalid environment variables use defaults", func(t *testing.T) {
		os.Setenv("RECEIPTS_FETCH_LIMIT", "invalid")
		os.Setenv("API_TIMEOUT", "invalid")

		cfg := Load()

		if cfg.ReceiptsFetchLimit != 100 {
			t.Errorf("Load() ReceiptsFetchLimit = %v, want 100 (default for invalid input)", cfg.ReceiptsFetchLimit)
		}
		if cfg.APITimeout != 15*time.Second {
			t.Errorf("Load() APITimeout = %v, want 15s (default for invalid input)", cfg.APITimeout)
		}
	})
}

// Helper function to check if string contains substring
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || func() bool {
		for i := 0; i <= len(s)-len(substr); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}())
}
