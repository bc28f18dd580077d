package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/apecorreia/ProductScraper/internal/repository"
)

const fingerprintPrefix = "fp:"

// FingerprintCache is a read-through Redis cache in front of the committed
// fingerprint index. Each cached key maps a fingerprint to its committed
// price with a TTL, so repeat listings across runs skip the database.
//
// Redis failures degrade to the backing index; a cache outage never drops
// or duplicates a record.
type FingerprintCache struct {
	client  *redis.Client
	backing repository.FingerprintIndex
	expiry  time.Duration
	logger  *zap.Logger
}

// NewFingerprintCache creates a new instance of FingerprintCache.
func NewFingerprintCache(client *redis.Client, backing repository.FingerprintIndex, expiry time.Duration, logger *zap.Logger) *FingerprintCache {
	return &FingerprintCache{client: client, backing: backing, expiry: expiry, logger: logger}
}

func cacheKey(fp string) string {
	return fingerprintPrefix + fp
}

// Existing returns the committed subset of fps with their prices, consulting
// the cache first and falling back to the backing index for misses. Backing
// hits are written back with the configured expiry.
func (c *FingerprintCache) Existing(ctx context.Context, fps []string) (map[string]float64, error) {
	if len(fps) == 0 {
		return map[string]float64{}, nil
	}

	out := make(map[string]float64, len(fps))
	misses := fps

	keys := make([]string, len(fps))
	for i, fp := range fps {
		keys[i] = cacheKey(fp)
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("fingerprint cache read failed, falling back to storage", zap.Error(err))
	} else {
		misses = nil
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				misses = append(misses, fps[i])
				continue
			}
			price, perr := strconv.ParseFloat(s, 64)
			if perr != nil {
				misses = append(misses, fps[i])
				continue
			}
			out[fps[i]] = price
		}
	}

	if len(misses) == 0 {
		return out, nil
	}

	committed, err := c.backing.Existing(ctx, misses)
	if err != nil {
		return nil, err
	}
	for fp, price := range committed {
		out[fp] = price
		// SETEX is atomic and sets the key with an expiry.
		if err := c.client.SetEx(ctx, cacheKey(fp), strconv.FormatFloat(price, 'f', -1, 64), c.expiry).Err(); err != nil {
			c.logger.Warn("fingerprint cache write failed", zap.String("fingerprint", fp), zap.Error(err))
		}
	}
	return out, nil
}

// Invalidate drops a cached fingerprint, used after a price update so the
// next lookup sees the new committed price.
func (c *FingerprintCache) Invalidate(ctx context.Context, fp string) error {
	return c.client.Del(ctx, cacheKey(fp)).Err()
}
