package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	LockNone   = "none"
	LockMemory = "memory"
	LockRedis  = "redis"
)

type Config struct {
	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`
	DBDSN         string `mapstructure:"DB_DSN"`
	Environment   string `mapstructure:"ENV"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	HTTPAddr      string `mapstructure:"HTTP_ADDR"`
	Timezone      string `mapstructure:"TIMEZONE"`
	Store         string `mapstructure:"STORE"`

	LockBackend   string `mapstructure:"LOCK_BACKEND"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	NatsURL       string `mapstructure:"NATS_URL"`
	StaffToken    string `mapstructure:"STAFF_TOKEN"`

	DefaultLessonMinutes int  `mapstructure:"DEFAULT_LESSON_MINUTES"`
	DefaultMaxGymnasts   int  `mapstructure:"DEFAULT_MAX_GYMNASTS"`
	MaxRangeDays         int  `mapstructure:"MAX_RANGE_DAYS"`
	RateLimitPerMinute   int  `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	MigrateOnStart       bool `mapstructure:"MIGRATE_ON_START"`

	Location *time.Location `mapstructure:"-"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфигурацию из переменных окружения
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		Environment:   getString("ENV", "development"),
		LogLevel:      getString("LOG_LEVEL", "info"),
		HTTPAddr:      getString("HTTP_ADDR", ":8080"),
		Timezone:      getString("TIMEZONE", "UTC"),
		Store:         strings.ToLower(getString("STORE", StorePostgres)),
		LockBackend:   strings.ToLower(getString("LOCK_BACKEND", LockNone)),
		RedisAddr:     getString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		NatsURL:       os.Getenv("NATS_URL"),
		StaffToken:    os.Getenv("STAFF_TOKEN"),
	}

	var err error
	if cfg.DefaultLessonMinutes, err = getInt("DEFAULT_LESSON_MINUTES", 30, 1); err != nil {
		return nil, err
	}
	if cfg.DefaultMaxGymnasts, err = getInt("DEFAULT_MAX_GYMNASTS", 1, 1); err != nil {
		return nil, err
	}
	if cfg.MaxRangeDays, err = getInt("MAX_RANGE_DAYS", 62, 1); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 120, 0); err != nil {
		return nil, err
	}
	if cfg.MigrateOnStart, err = getBool("MIGRATE_ON_START", true); err != nil {
		return nil, err
	}

	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}

	switch cfg.Store {
	case StorePostgres:
		// Проверяем обязательные поля
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required but not set")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}

	switch cfg.LockBackend {
	case LockNone, LockMemory, LockRedis:
	default:
		return nil, fmt.Errorf("LOCK_BACKEND must be one of none, memory, redis, got %q", cfg.LockBackend)
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// BotEnabled: бот запускается только при заданном токене
func (c *Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def, min int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if v < min {
		return 0, fmt.Errorf("%s must be at least %d, got %d", key, min, v)
	}
	return v, nil
}

func getBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}
