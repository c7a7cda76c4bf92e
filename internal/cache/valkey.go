package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"citypulse/internal/metrics"
)

// Ключи кэша
const (
	InterestsKey = "interests:all"
)

type Config struct {
	Addr        string
	Password    string
	Enabled     bool
	InterestTTL time.Duration
}

// ValkeyClient stores JSON snapshots in Valkey/Redis
type ValkeyClient struct {
	client rueidis.Client
}

func NewValkeyClient(ctx context.Context, cfg Config) (*ValkeyClient, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.Addr},
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{client: client}, nil
}

// GetJSON decodes the value of key into dst. A missing key is not an error,
// found is false then.
func (v *ValkeyClient) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := v.client.Do(ctx, v.client.B().Get().Key(key).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		metrics.RecordCache(key, false)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache lookup error: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("invalid cached value for %s: %w", key, err)
	}
	metrics.RecordCache(key, true)
	return true, nil
}

func (v *ValkeyClient) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	cmd := v.client.B().Set().Key(key).Value(rueidis.BinaryString(data)).ExSeconds(seconds).Build()
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("cache write error: %w", err)
	}
	return nil
}

func (v *ValkeyClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := v.client.Do(ctx, v.client.B().Del().Key(keys...).Build()).Error(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (v *ValkeyClient) Ping(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

func (v *ValkeyClient) Close() error {
	v.client.Close()
	return nil
}
