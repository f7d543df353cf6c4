package services

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// nextSequenceScript increments the counter and lifts it above floor when the store is ahead,
// e.g. after Redis lost its data.
var nextSequenceScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
local floor = tonumber(ARGV[1])
if current <= floor then
  current = floor + 1
  redis.call('SET', KEYS[1], current)
end
return current
`)

// RedisSequenceCounter keeps one atomic counter per (prefix, year) in Redis
type RedisSequenceCounter struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisSequenceCounter creates a counter storing keys under "case_code:"
func NewRedisSequenceCounter(client *redis.Client) *RedisSequenceCounter {
	return &RedisSequenceCounter{client: client, keyPrefix: "case_code"}
}

func (r *RedisSequenceCounter) key(prefix string, year int) string {
	return fmt.Sprintf("%s:%s:%d", r.keyPrefix, prefix, year)
}

// Next returns the next sequence for prefix and year, always greater than floor
func (r *RedisSequenceCounter) Next(ctx context.Context, prefix string, year int, floor int) (int, error) {
	n, err := nextSequenceScript.Run(ctx, r.client, []string{r.key(prefix, year)}, floor).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence counter: %w", err)
	}
	return n, nil
}
