package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port        string
	PrintKey    string // shared key for the print dispatch API; empty disables the check
	PrinterLang string // TSPL (default) or ZPL
	SchoolsFile string

	// CountdownBaseURL is the public countdown page QR codes deep-link into.
	CountdownBaseURL string

	Database DatabaseConfig
	Station  StationConfig
	Sync     SyncConfig
	Poller   PollerConfig

	// DeviceTokens maps a scan-device token to the stage it is bound to.
	DeviceTokens map[string]string
}

// DatabaseConfig holds database configuration. An empty URL selects the
// zero-config embedded instance under DataPath.
type DatabaseConfig struct {
	URL      string
	DataPath string
}

// StationConfig holds edge scan station configuration
type StationConfig struct {
	Stage          string
	DebounceWindow time.Duration
}

// SyncConfig holds background syncer configuration
type SyncConfig struct {
	Interval  time.Duration
	RemoteURL string
}

// PollerConfig holds print poller configuration
type PollerConfig struct {
	BaseURL     string
	PrinterAddr string
	Interval    time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	tokens := map[string]string{
		os.Getenv("SCAN_DEVICE_PROCESSING_TOKEN"): "Processing",
		os.Getenv("SCAN_DEVICE_PACKING_TOKEN"):    "Packing",
		os.Getenv("SCAN_DEVICE_DELIVERY_TOKEN"):   "Delivery",
	}
	delete(tokens, "")

	return &Config{
		Port:        getEnv("PORT", "8000"),
		PrintKey:    os.Getenv("CLOUD_PRINT_KEY"),
		PrinterLang: getEnv("PRINTER_LANG", "TSPL"),
		SchoolsFile: getEnv("SCHOOLS_FILE", "./data/schools.json"),

		CountdownBaseURL: getEnv("COUNTDOWN_BASE_URL", "https://dapurpintarmbg-countdown.streamlit.app"),

		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			DataPath: getEnv("LOCAL_DATA_PATH", "./db_data"),
		},
		Station: StationConfig{
			Stage:          getEnv("STATION_STAGE", "Processing"),
			DebounceWindow: getEnvMillis("DEBOUNCE_WINDOW_MS", 700),
		},
		Sync: SyncConfig{
			Interval:  getEnvSeconds("SYNC_INTERVAL", 60),
			RemoteURL: os.Getenv("REMOTE_DATABASE_URL"),
		},
		Poller: PollerConfig{
			BaseURL:     getEnv("CLOUD_BASE_URL", "http://localhost:8000"),
			PrinterAddr: getEnv("PRINTER_ADDR", "127.0.0.1:9100"),
			Interval:    getEnvSeconds("POLL_INTERVAL", 2),
		},
		DeviceTokens: tokens,
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(defaultSeconds) * time.Second
}

func getEnvMillis(key string, defaultMillis int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return time.Duration(defaultMillis) * time.Millisecond
}
