package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppPort string

	LogLevel  string
	LogFormat string

	// RegistryFile 为空时使用内置的新闻源列表
	RegistryFile string

	UserAgent        string
	FetchTimeout     time.Duration
	SlowFetchTimeout time.Duration
	MaxBodyBytes     int64

	// 运行记录：留空即关闭
	PostgresDSN string
	RedisAddr   string
}

// Load 从环境变量读取配置；当前目录存在 .env 时先加载它（不覆盖已有环境变量）
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:          getEnv("APP_PORT", "9000"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "console"),
		RegistryFile:     getEnv("REGISTRY_FILE", ""),
		UserAgent:        getEnv("USER_AGENT", ""),
		FetchTimeout:     getDuration("FETCH_TIMEOUT", 10*time.Second),
		SlowFetchTimeout: getDuration("SLOW_FETCH_TIMEOUT", 15*time.Second),
		MaxBodyBytes:     getInt64("MAX_BODY_BYTES", 5<<20),
		PostgresDSN:      getEnv("POSTGRES_DSN", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
	}
	return cfg
}

// HistoryEnabled 仅在配置了 Postgres 时保存批量运行记录
func (c *Config) HistoryEnabled() bool {
	return c.PostgresDSN != ""
}

// StoreEnabled 配置了 Postgres 或 Redis 任一后端即需要记录批量结果
func (c *Config) StoreEnabled() bool {
	return c.PostgresDSN != "" || c.RedisAddr != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration, using default")
		return def
	}
	return d
}

func getInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer, using default")
		return def
	}
	return n
}
