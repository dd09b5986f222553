// Package cache stores rendered dashboard views in Redis keyed by their
// logical path, and lets writers mark a path stale after a mutation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// KeyPrefix namespaces cached views in Redis.
	KeyPrefix = "page:"

	// GenerationPrefix namespaces the per-path revalidation counters.
	GenerationPrefix = "gen:"

	// Channel carries revalidated paths to subscribers.
	Channel = "revalidate"
)

// PathCache caches JSON-encoded views per path.
type PathCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewPathCache(client redis.UniversalClient, ttl time.Duration, logger *zerolog.Logger) *PathCache {
	return &PathCache{client: client, ttl: ttl, logger: logger}
}

// Key returns the Redis key holding the view for path.
func Key(path string) string {
	return KeyPrefix + path
}

// GenerationKey returns the Redis key counting revalidations of path.
func GenerationKey(path string) string {
	return GenerationPrefix + path
}

// storeIfCurrent sets KEYS[2] only while the generation in KEYS[1] still
// equals ARGV[1]. A missing generation counts as 0.
var storeIfCurrent = redis.NewScript(`
local gen = redis.call("GET", KEYS[1]) or "0"
if gen ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[2], ARGV[2])
end
return 1
`)

// RevalidatePath drops the cached view for path, bumps its generation and
// announces it on Channel. The next read of path goes to the database, and
// views computed before the bump can no longer be stored.
func (c *PathCache) RevalidatePath(ctx context.Context, path string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, Key(path))
		pipe.Incr(ctx, GenerationKey(path))
		pipe.Publish(ctx, Channel, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("revalidating %s: %w", path, err)
	}

	c.logger.Debug().Str("path", path).Msg("path revalidated")
	return nil
}

// Load decodes the cached view for path into dst. It reports false on a
// cache miss.
func (c *PathCache) Load(ctx context.Context, path string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, Key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading cached %s: %w", path, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decoding cached %s: %w", path, err)
	}
	return true, nil
}

// Generation returns the current revalidation generation of path. Read it
// before computing a view and pass it to Store.
func (c *PathCache) Generation(ctx context.Context, path string) (int64, error) {
	gen, err := c.client.Get(ctx, GenerationKey(path)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading generation of %s: %w", path, err)
	}
	return gen, nil
}

// Store caches v under path for the configured TTL, provided path has not
// been revalidated since gen was read. It reports whether v was stored.
func (c *PathCache) Store(ctx context.Context, path string, gen int64, v any) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("encoding %s: %w", path, err)
	}

	stored, err := storeIfCurrent.Run(ctx, c.client,
		[]string{GenerationKey(path), Key(path)},
		gen, data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("caching %s: %w", path, err)
	}
	if stored == 0 {
		c.logger.Debug().Str("path", path).Int64("generation", gen).Msg("skipped caching stale view")
	}
	return stored == 1, nil
}

// Subscribe streams revalidated paths until ctx is done. The returned
// channel is closed when the subscription ends.
func (c *PathCache) Subscribe(ctx context.Context) (<-chan string, error) {
	pubsub := c.client.Subscribe(ctx, Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", Channel, err)
	}

	paths := make(chan string)
	go func() {
		defer close(paths)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case paths <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return paths, nil
}
