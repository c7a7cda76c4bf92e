package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"citypulse/internal/cache"
	"citypulse/internal/database"
	"citypulse/internal/feed"
	"citypulse/internal/messaging"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// HS256 secret for bearer tokens
	JWTSecret   string
	CORSOrigins []string

	Mongo         database.MongoConfig
	Database      database.Config
	NATS          messaging.Config
	Cache         cache.Config
	Elasticsearch ElasticsearchConfig
	Feed          feed.Config
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),

		Mongo: database.MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DB", "citypulse"),
			ConnectTimeout: time.Duration(getEnvInt("MONGO_CONNECT_TIMEOUT_SEC", 10)) * time.Second,
		},

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "citypulse"),
			Password:           getEnv("DB_PASSWORD", "citypulse"),
			DBName:             getEnv("DB_NAME", "citypulse"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "citypulse"),
			ClientID:  getEnv("NATS_CLIENT_ID", "citypulse-api"),
			Enabled:   getEnvBool("NATS_ENABLED", true),
		},

		Cache: cache.Config{
			Addr:        getEnv("VALKEY_ADDR", "localhost:6379"),
			Password:    getEnv("VALKEY_PASSWORD", ""),
			Enabled:     getEnvBool("VALKEY_ENABLED", false),
			InterestTTL: time.Duration(getEnvInt("INTEREST_CACHE_TTL_SEC", 300)) * time.Second,
		},

		Elasticsearch: LoadElasticsearchConfig(),

		Feed: feed.Config{
			DefaultPageSize: getEnvInt("FEED_PAGE_SIZE_DEFAULT", 10),
			MaxPageSize:     getEnvInt("FEED_PAGE_SIZE_MAX", 50),
			DefaultRadiusKm: float64(getEnvInt("MAP_RADIUS_KM_DEFAULT", 10)),
			MaxRadiusKm:     float64(getEnvInt("MAP_RADIUS_KM_MAX", 100)),
		},
	}
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList reads a comma-separated list
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
