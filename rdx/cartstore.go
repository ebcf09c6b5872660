package rdx

import (
	"context"
	"strings"
	"time"

	"crumble/cart"

	"github.com/redis/go-redis/v9"
)

// CartStore is the device-local cart tier backed by Redis. Anonymous carts are
// staged here until a login merge promotes them to Mongo; it also catches
// writes when the remote tier is down. Entries expire so abandoned anonymous
// carts do not pile up.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartStore(ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &CartStore{client: Conn, ttl: ttl}
}

func (s *CartStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, "cart:local:"+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *CartStore) Set(ctx context.Context, key, value string) error {
	err := s.client.Set(ctx, "cart:local:"+key, value, s.ttl).Err()
	if err != nil && strings.HasPrefix(err.Error(), "OOM") {
		return cart.ErrStorageQuota
	}
	return err
}

func (s *CartStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, "cart:local:"+key).Err()
}

// Available probes the tier with a throwaway write, mirroring the
// set-then-remove capacity check browsers use against localStorage.
func (s *CartStore) Available(ctx context.Context) bool {
	probe := "cart:local:__probe__"
	if err := s.client.Set(ctx, probe, "1", time.Minute).Err(); err != nil {
		return false
	}
	s.client.Del(ctx, probe)
	return true
}
