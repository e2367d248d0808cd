package cartcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"soapstore/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cart:"

// Cache holds the fast copy of carts in Redis: the only copy for anonymous
// devices, a read-through copy for authenticated users.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Load returns the cached cart and whether the key was present.
func (c *Cache) Load(ctx context.Context, key string) (domain.Cart, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Cart{}, false, nil
		}
		return domain.Cart{}, false, err
	}
	var lines []domain.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return domain.Cart{}, false, err
	}
	return domain.Cart{Lines: lines}, true, nil
}

func (c *Cache) Save(ctx context.Context, key string, cart domain.Cart) error {
	lines := cart.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, keyPrefix+key).Err()
}
