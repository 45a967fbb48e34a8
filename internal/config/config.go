package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	BackendURL     string        `validate:"required,url"`
	RequestTimeout time.Duration `validate:"gt=0"`
	HTTPAddr       string        `validate:"required"`

	StorageDriver       string `validate:"oneof=file redis memory"`
	StoragePath         string `validate:"required_if=StorageDriver file"`
	StorageProfile      string `validate:"required"`
	StoragePollInterval time.Duration
	RedisAddr           string `validate:"required_if=StorageDriver redis"`
	RedisPassword       string
	RedisDB             int `validate:"gte=0"`

	DatabaseURL  string
	JWTSecret    string
	JWTPublicKey string

	RemindersEnabled        bool
	ReminderCheckInterval   time.Duration `validate:"gt=0"`
	ReminderRefreshInterval time.Duration `validate:"gt=0"`
	ReminderStorageDebounce time.Duration `validate:"gte=0"`
	ReminderFiredRetention  time.Duration `validate:"gte=24h"`

	TokenRefreshInterval time.Duration
	TokenRefreshWindow   time.Duration

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`
}

// Load reads the environment. A .env file in the working directory is
// honoured when present; real environment variables win over it.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		BackendURL:              strings.TrimRight(getenv("BACKEND_URL", "http://localhost:5000"), "/"),
		RequestTimeout:          getenvDuration("REQUEST_TIMEOUT", 10*time.Second),
		HTTPAddr:                getenv("HTTP_ADDR", ":8090"),
		StorageDriver:           strings.ToLower(getenv("STORAGE_DRIVER", "file")),
		StoragePath:             getenv("STORAGE_PATH", defaultStoragePath()),
		StorageProfile:          getenv("STORAGE_PROFILE", "default"),
		StoragePollInterval:     getenvDuration("STORAGE_POLL_INTERVAL", time.Second),
		RedisAddr:               getenv("REDIS_ADDR", ""),
		RedisPassword:           getenv("REDIS_PASSWORD", ""),
		RedisDB:                 getenvInt("REDIS_DB", 0),
		DatabaseURL:             getenv("DATABASE_URL", ""),
		JWTSecret:               getenvKey("JWT_SECRET", ""),
		JWTPublicKey:            getenvKey("JWT_PUBLIC_KEY", ""),
		RemindersEnabled:        getenvBool("REMINDERS_ENABLED", true),
		ReminderCheckInterval:   getenvDuration("REMINDER_CHECK_INTERVAL", time.Minute),
		ReminderRefreshInterval: getenvDuration("REMINDER_REFRESH_INTERVAL", 5*time.Minute),
		ReminderStorageDebounce: getenvDuration("REMINDER_STORAGE_DEBOUNCE", time.Second),
		ReminderFiredRetention:  getenvDuration("REMINDER_FIRED_RETENTION", 48*time.Hour),
		TokenRefreshInterval:    getenvDuration("TOKEN_REFRESH_INTERVAL", time.Minute),
		TokenRefreshWindow:      getenvDuration("TOKEN_REFRESH_WINDOW", 2*time.Minute),
		LogLevel:                strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:               strings.ToLower(getenv("LOG_FORMAT", "text")),
	}
}

func (c Config) Validate() error {
	return validator.New().Struct(c)
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".shdrug", "storage.json")
	}
	return filepath.Join(home, ".shdrug", "storage.json")
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvKey(key, fallback string) string {
	if file := os.Getenv(key + "_FILE"); file != "" {
		if data, err := os.ReadFile(file); err == nil {
			return normalizePEM(string(data))
		}
	}
	if val := os.Getenv(key); val != "" {
		return normalizePEM(val)
	}
	return fallback
}

func normalizePEM(value string) string {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "\\n") && !strings.Contains(value, "\n") {
		value = strings.ReplaceAll(value, "\\n", "\n")
	}
	return value
}
