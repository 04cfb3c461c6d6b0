package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Scanner ScannerConfig
	Render  RenderConfig
	Redis   RedisConfig
	Events  EventsConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScannerConfig struct {
	// Mode selects the fetch pipeline: "stealth", "basic" or "browser".
	Mode             string
	MaxWorkers       int
	RateLimit        int           // requests per window, shared across workers
	RateWindow       time.Duration // trailing window for RateLimit
	MaxRetries       int
	RetryDelay       time.Duration
	FailureThreshold int
	ResetTimeout     time.Duration
	MaxSessions      int
	LogBuffer        int
}

type RenderConfig struct {
	URL        string
	Timeout    time.Duration
	MaxTimeout time.Duration
	Wait       time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type EventsConfig struct {
	Enabled bool
	Stream  string
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 8084),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scanner: ScannerConfig{
			Mode:             getEnv("SCANNER_MODE", "stealth"),
			MaxWorkers:       getEnvInt("SCANNER_WORKERS", 20),
			RateLimit:        getEnvInt("SCANNER_RATE_LIMIT", 30),
			RateWindow:       getEnvDuration("SCANNER_RATE_WINDOW", time.Minute),
			MaxRetries:       getEnvInt("SCANNER_MAX_RETRIES", 3),
			RetryDelay:       getEnvDuration("SCANNER_RETRY_DELAY", 2*time.Second),
			FailureThreshold: getEnvInt("SCANNER_FAILURE_THRESHOLD", 5),
			ResetTimeout:     getEnvDuration("SCANNER_RESET_TIMEOUT", 60*time.Second),
			MaxSessions:      getEnvInt("SCANNER_MAX_SESSIONS", 500),
			LogBuffer:        getEnvInt("SCANNER_LOG_BUFFER", 200),
		},
		Render: RenderConfig{
			URL:        getEnv("RENDER_URL", "http://localhost:8050"),
			Timeout:    getEnvDuration("RENDER_TIMEOUT", 30*time.Second),
			MaxTimeout: getEnvDuration("RENDER_MAX_TIMEOUT", 120*time.Second),
			Wait:       getEnvDuration("RENDER_WAIT", 2*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Events: EventsConfig{
			Enabled: getEnvBool("EVENTS_ENABLED", false),
			Stream:  getEnv("EVENTS_STREAM", "stream:scan_lifecycle"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Scanner.MaxWorkers < 1 {
		return fmt.Errorf("SCANNER_WORKERS must be at least 1")
	}

	if c.Scanner.MaxWorkers > 100 {
		return fmt.Errorf("SCANNER_WORKERS must not exceed 100")
	}

	if c.Scanner.RateLimit < 1 {
		return fmt.Errorf("SCANNER_RATE_LIMIT must be at least 1")
	}

	switch c.Scanner.Mode {
	case "stealth", "basic", "browser":
	default:
		return fmt.Errorf("invalid SCANNER_MODE: %q (want stealth, basic or browser)", c.Scanner.Mode)
	}

	if c.Render.URL == "" {
		return fmt.Errorf("RENDER_URL is required")
	}

	if c.Render.Timeout > c.Render.MaxTimeout {
		return fmt.Errorf("RENDER_TIMEOUT cannot exceed RENDER_MAX_TIMEOUT")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
