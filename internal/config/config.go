package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	defaultPort              = "3000"
	defaultDriver            = "postgres"
	defaultJWTSecret         = "your-super-secret-key-change-in-production"
	defaultKafkaTopic        = "pos.ledger.events"
	defaultReconcileSchedule = "0 */5 * * * *"
	defaultOrphanGrace       = 5 * time.Minute
	defaultLowStockThreshold = 10
)

type Config struct {
	AppEnv   string
	Port     string
	LogLevel string

	DBDriver string
	DSN      string

	JWTSecret string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string

	OTLPEndpoint string

	ReconcileSchedule string
	OrphanGrace       time.Duration
	LowStockThreshold int
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on system env")
	}
	return FromEnv()
}

// FromEnv builds the config from the current environment only.
func FromEnv() *Config {
	cfg := &Config{
		AppEnv:            GetEnv("APP_ENV", "local"),
		Port:              GetEnv("PORT", defaultPort),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		DBDriver:          strings.ToLower(GetEnv("DB_DRIVER", defaultDriver)),
		JWTSecret:         GetEnv("JWT_SECRET", defaultJWTSecret),
		RedisAddr:         GetEnv("REDIS_ADDR", ""),
		RedisPassword:     GetEnv("REDIS_PASSWORD", ""),
		KafkaTopic:        GetEnv("KAFKA_TOPIC", defaultKafkaTopic),
		OTLPEndpoint:      GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ReconcileSchedule: GetEnv("RECONCILE_SCHEDULE", defaultReconcileSchedule),
		OrphanGrace:       GetEnvAsDuration("ORPHAN_GRACE", defaultOrphanGrace),
		LowStockThreshold: GetEnvAsInt("LOW_STOCK_THRESHOLD", defaultLowStockThreshold),
	}

	if brokers := GetEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	cfg.DSN = databaseDSN(cfg.DBDriver)
	return cfg
}

func (c *Config) IsLocal() bool {
	return c.AppEnv == "local"
}

func databaseDSN(driver string) string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	if driver == "sqlite" {
		return GetEnv("SQLITE_PATH", "pos-ledger.db")
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Jakarta",
		GetEnv("DB_HOST", "localhost"),
		GetEnv("DB_USER", "postgres"),
		GetEnv("DB_PASSWORD", "postgres"),
		GetEnv("DB_NAME", "pos_ledger"),
		GetEnv("DB_PORT", "5432"),
	)
}

func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func GetEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(GetEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func GetEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(GetEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
