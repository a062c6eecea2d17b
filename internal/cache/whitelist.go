package cache

import (
	"context"

	"parkly/internal/logger"
)

// WhitelistSource is the SQL-backed membership check the cache sits in front
// of.
type WhitelistSource interface {
	IsWhitelisted(ctx context.Context, lotID, clientID int64) (bool, error)
}

// WhitelistCache answers membership checks from Valkey and falls back to the
// source on a miss or any cache error. A nil client disables caching without
// changing behavior.
type WhitelistCache struct {
	source WhitelistSource
	client *ValkeyClient
}

func NewWhitelistCache(source WhitelistSource, client *ValkeyClient) *WhitelistCache {
	return &WhitelistCache{source: source, client: client}
}

func (c *WhitelistCache) IsWhitelisted(ctx context.Context, lotID, clientID int64) (bool, error) {
	if c.client != nil {
		if ok, err := c.client.GetWhitelisted(ctx, lotID, clientID); err == nil {
			return ok, nil
		}
	}

	ok, err := c.source.IsWhitelisted(ctx, lotID, clientID)
	if err != nil {
		return false, err
	}

	if c.client != nil {
		if err := c.client.SetWhitelisted(ctx, lotID, clientID, ok); err != nil {
			logger.Get().Warn("Failed to cache whitelist entry",
				"error", err,
				"lot_id", lotID)
		}
	}
	return ok, nil
}
