package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"eeytech.com/console/internal/auth"
	"eeytech.com/console/internal/obs"
)

const apiKeyPrefix = "console:apikey:"

// ApplicationLookup finds the application that owns an API key.
type ApplicationLookup interface {
	FindApplicationByAPIKey(ctx context.Context, apiKey string) (auth.Application, error)
}

// APIKeys resolves X-API-Key headers to applications, caching hits in Redis.
// A nil client disables caching. Unknown keys are never cached, so a new
// application is usable at once; a deleted one may linger for one TTL.
type APIKeys struct {
	lookup ApplicationLookup
	client *redis.Client
	ttl    time.Duration
}

// NewAPIKeys constructs the resolver.
func NewAPIKeys(lookup ApplicationLookup, client *redis.Client, ttl time.Duration) *APIKeys {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &APIKeys{lookup: lookup, client: client, ttl: ttl}
}

// Resolve returns the application for apiKey, or auth.ErrUnauthenticated
// when the key is blank or unknown.
func (c *APIKeys) Resolve(ctx context.Context, apiKey string) (auth.Application, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		obs.RecordAPIKeyLookup("invalid")
		return auth.Application{}, auth.ErrUnauthenticated
	}
	key := cacheKey(apiKey)

	if c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var app auth.Application
			if jsonErr := json.Unmarshal(payload, &app); jsonErr == nil {
				obs.RecordAPIKeyLookup("hit")
				return app, nil
			}
		case !errors.Is(err, redis.Nil):
			obs.Logger().WarnContext(ctx, "api key cache read failed", slog.Any("error", err))
		}
	}

	app, err := c.lookup.FindApplicationByAPIKey(ctx, apiKey)
	if errors.Is(err, auth.ErrNotFound) {
		obs.RecordAPIKeyLookup("invalid")
		return auth.Application{}, auth.ErrUnauthenticated
	}
	if err != nil {
		return auth.Application{}, err
	}
	obs.RecordAPIKeyLookup("miss")

	if c.client != nil {
		if raw, err := json.Marshal(app); err == nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				obs.Logger().WarnContext(ctx, "api key cache write failed", slog.Any("error", err))
			}
		}
	}
	return app, nil
}

// Forget drops a cached key, e.g. after its application is deleted.
func (c *APIKeys) Forget(ctx context.Context, apiKey string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, cacheKey(strings.TrimSpace(apiKey))).Err()
}

// cacheKey hashes the key so raw credentials never sit in Redis.
func cacheKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return apiKeyPrefix + hex.EncodeToString(sum[:])
}
