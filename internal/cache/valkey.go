package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	TTL      time.Duration
}

// ValkeyClient caches whitelist membership lookups in front of the SQL table.
// Check-in hits this on every whitelisted lot, so misses are cheap but hits
// save a round trip per gate event.
type ValkeyClient struct {
	client *redis.Client
	ttl    time.Duration
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	return &ValkeyClient{client: rdb, ttl: ttl}, nil
}

func whitelistKey(lotID, clientID int64) string {
	return fmt.Sprintf("whitelist:%d:%d", lotID, clientID)
}

// GetWhitelisted returns the cached membership answer. The error return is
// redis.Nil on a miss.
func (v *ValkeyClient) GetWhitelisted(ctx context.Context, lotID, clientID int64) (bool, error) {
	val, err := v.client.Get(ctx, whitelistKey(lotID, clientID)).Result()
	if err != nil {
		return false, err
	}
	return val == "1", nil
}

func (v *ValkeyClient) SetWhitelisted(ctx context.Context, lotID, clientID int64, whitelisted bool) error {
	val := "0"
	if whitelisted {
		val = "1"
	}
	return v.client.Set(ctx, whitelistKey(lotID, clientID), val, v.ttl).Err()
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
