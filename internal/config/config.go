package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Store backends selectable through STORE_BACKEND
const (
	StoreNone     = "none"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
)

// Notifier names accepted in NOTIFIER
const (
	NotifierWebSocket = "ws"
	NotifierKafka     = "kafka"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	LogLevel       string
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	// Facility settings file (YAML)
	SettingsFile string

	// Persistence
	StoreBackend  string
	StoreFile     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	// Call notifications
	Notifiers    []string
	KafkaBrokers []string
	KafkaTopic   string

	// Display board
	BoardInterval time.Duration
	BoardSize     int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SettingsFile:   getEnv("SETTINGS_FILE", "settings.yaml"),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", StoreNone)),
		StoreFile:      getEnv("STORE_FILE", "turnos-state.json"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisKey:       getEnv("REDIS_KEY", "turnos:state"),
		Notifiers:      splitList(getEnv("NOTIFIER", NotifierWebSocket)),
		KafkaBrokers:   splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "turnos.calls"),
	}

	// Parse WebSocket timeouts
	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	config.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	config.BoardInterval, err = time.ParseDuration(getEnv("BOARD_INTERVAL", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOARD_INTERVAL: %w", err)
	}
	if config.BoardInterval <= 0 {
		return nil, fmt.Errorf("invalid BOARD_INTERVAL: must be positive, got %s", config.BoardInterval)
	}

	config.BoardSize, err = strconv.Atoi(getEnv("BOARD_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOARD_SIZE: %w", err)
	}

	switch config.StoreBackend {
	case StoreNone, StoreFile, StoreRedis, StoreDynamoDB:
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q", config.StoreBackend)
	}

	for _, n := range config.Notifiers {
		if n != NotifierWebSocket && n != NotifierKafka {
			return nil, fmt.Errorf("invalid NOTIFIER entry %q", n)
		}
	}

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	return config, nil
}

// ParseFlags applies command-line overrides on top of the environment
func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("turnos", pflag.ContinueOnError)
	fs.StringVar(&c.SettingsFile, "settings", c.SettingsFile, "path to the facility settings YAML file")
	fs.StringVarP(&c.Port, "port", "p", c.Port, "HTTP listen port")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}

// HasNotifier reports whether name is enabled in NOTIFIER
func (c *Config) HasNotifier(name string) bool {
	for _, n := range c.Notifiers {
		if n == name {
			return true
		}
	}
	return false
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList splits a comma separated value, dropping blanks
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
