package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache backed by a Redis server, for deployments where
// several processes share one result cache. Entries are stored as JSON
// with a TTL matching the entry's expiry.
type Redis struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to the Redis instance named by url
// (redis://host:port/db) and verifies the connection.
func OpenRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}
	return &Redis{client: client, prefix: "sparql:results:"}, nil
}

// Get returns the entry for key, or ErrMiss. Expiry is enforced by the
// server-side TTL, with a freshness check on top in case of clock skew.
func (r *Redis) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: get %q: %w", key, err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("cache: decode entry %q: %w", key, err)
	}
	if !entry.Fresh(time.Now()) {
		return nil, ErrMiss
	}
	return &entry, nil
}

// Set stores an entry with a TTL running to its expiry.
func (r *Redis) Set(ctx context.Context, key string, entry *Entry) error {
	ttl := time.Until(entry.Expires)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache: encode entry %q: %w", key, err)
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %q: %w", key, err)
	}
	return nil
}

// Close closes the client connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
