package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                string
	AllowedOrigin       string
	DatabaseURL         string
	RunMigrations       bool
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	SummaryTTLSeconds   int
	LogLevel            string
	CashAccountID       string
	WriteMaxRetries     int
	WriteRetryBackoffMS int
	CompensateOnFailure bool
	MinioEndpoint       string
	MinioAccessKey      string
	MinioSecretKey      string
	MinioBucket         string
	MinioUseSSL         bool
}

// Load reads configuration from the environment, with a .env file in the
// working directory filling in unset keys.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SUMMARY_TTL_SECONDS", 20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CASH_ACCOUNT_ID", "cash")
	v.SetDefault("WRITE_MAX_RETRIES", 3)
	v.SetDefault("WRITE_RETRY_BACKOFF_MS", 50)
	v.SetDefault("LEDGER_COMPENSATE_ON_FAILURE", false)
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "ledger-backups")
	v.SetDefault("MINIO_USE_SSL", false)
	v.AutomaticEnv()

	ttl := v.GetInt("SUMMARY_TTL_SECONDS")
	if ttl < 1 {
		ttl = 20
	}
	retries := v.GetInt("WRITE_MAX_RETRIES")
	if retries < 0 {
		retries = 0
	}
	backoff := v.GetInt("WRITE_RETRY_BACKOFF_MS")
	if backoff < 1 {
		backoff = 50
	}
	cashAccount := strings.TrimSpace(v.GetString("CASH_ACCOUNT_ID"))
	if cashAccount == "" {
		cashAccount = "cash"
	}

	return Config{
		Port:                v.GetString("PORT"),
		AllowedOrigin:       v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:         strings.TrimSpace(v.GetString("DATABASE_URL")),
		RunMigrations:       v.GetBool("RUN_MIGRATIONS"),
		RedisAddr:           strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		SummaryTTLSeconds:   ttl,
		LogLevel:            strings.ToLower(v.GetString("LOG_LEVEL")),
		CashAccountID:       cashAccount,
		WriteMaxRetries:     retries,
		WriteRetryBackoffMS: backoff,
		CompensateOnFailure: v.GetBool("LEDGER_COMPENSATE_ON_FAILURE"),
		MinioEndpoint:       strings.TrimSpace(v.GetString("MINIO_ENDPOINT")),
		MinioAccessKey:      v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:      v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:         v.GetString("MINIO_BUCKET"),
		MinioUseSSL:         v.GetBool("MINIO_USE_SSL"),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) SummaryTTL() time.Duration {
	return time.Duration(c.SummaryTTLSeconds) * time.Second
}

func (c Config) RetryBackoff() time.Duration {
	return time.Duration(c.WriteRetryBackoffMS) * time.Millisecond
}
