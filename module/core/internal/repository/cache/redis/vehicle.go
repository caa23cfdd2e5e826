package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/internal/repository/database"
)

var _ database.VehicleRegistry = (*VehicleCache)(nil)

const keyFormat = "vehicle:%s"

// VehicleCache fronts a VehicleRegistry with Redis. Unknown vehicles are not
// cached so a newly registered vehicle is visible on the caller's retry.
type VehicleCache struct {
	next  database.VehicleRegistry
	cache *cache.Cache[string]
}

func NewVehicleCache(client *goredis.Client, next database.VehicleRegistry, ttl time.Duration) *VehicleCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(ttl))

	return &VehicleCache{
		next:  next,
		cache: cache.New[string](redisStore),
	}
}

func (c *VehicleCache) FindByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	key := fmt.Sprintf(keyFormat, id)

	cached, err := c.cache.Get(ctx, key)
	if err == nil && cached != "" {
		var v domain.Vehicle
		if err := json.Unmarshal([]byte(cached), &v); err == nil {
			return &v, nil
		}
		log.Warn().Str("vehicle_id", id).Msg("discarding unreadable cached vehicle")
	}

	v, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := c.cache.Set(ctx, key, string(body)); err != nil {
		log.Warn().Err(err).Str("vehicle_id", id).Msg("vehicle cache write failed")
	}
	return v, nil
}

// Invalidate drops a cached vehicle, e.g. after an external status change.
func (c *VehicleCache) Invalidate(ctx context.Context, id string) error {
	return c.cache.Delete(ctx, fmt.Sprintf(keyFormat, id))
}
