package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, 10, cfg.Feed.DefaultPageSize)
	assert.Equal(t, 50, cfg.Feed.MaxPageSize)
	assert.Equal(t, 10.0, cfg.Feed.DefaultRadiusKm)
	assert.Equal(t, 100.0, cfg.Feed.MaxRadiusKm)
	assert.False(t, cfg.Elasticsearch.Enabled)
	assert.True(t, cfg.NATS.Enabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FEED_PAGE_SIZE_DEFAULT", "20")
	t.Setenv("VALKEY_ENABLED", "true")
	t.Setenv("INTEREST_CACHE_TTL_SEC", "60")
	t.Setenv("CORS_ORIGINS", "https://a.kz, https://b.kz,")
	t.Setenv("ELASTICSEARCH_TIMEOUT", "2s")
	t.Setenv("NATS_ENABLED", "not-a-bool")

	cfg := Load()

	assert.Equal(t, 20, cfg.Feed.DefaultPageSize)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.InterestTTL)
	assert.Equal(t, []string{"https://a.kz", "https://b.kz"}, cfg.CORSOrigins)
	assert.Equal(t, 2*time.Second, cfg.Elasticsearch.Timeout)
	assert.True(t, cfg.NATS.Enabled)
}
