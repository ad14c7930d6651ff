package redis

import (
	"context"
	"fmt"

	red "github.com/redis/go-redis/v9"
)

// createIfAbsent writes the hash only when the key does not exist yet.
// Returns 1 on write, 0 when the key was already present.
var createIfAbsent = red.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// updateIfPresent merges fields into an existing hash and returns the full hash,
// or 0 when the key is missing. It never creates the key.
var updateIfPresent = red.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return redis.call('HGETALL', KEYS[1])
`)

func flattenFields(fields map[string]string) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

// scanKeys collects every key matching pattern using cursor-based SCAN.
func scanKeys(ctx context.Context, client *red.Client, pattern string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// hashFromReply converts an HGETALL reply returned through EVAL into a map.
func hashFromReply(reply any) (map[string]string, bool, error) {
	switch v := reply.(type) {
	case int64:
		return nil, false, nil
	case []any:
		if len(v)%2 != 0 {
			return nil, false, fmt.Errorf("redis: odd hash reply length %d", len(v))
		}
		out := make(map[string]string, len(v)/2)
		for i := 0; i < len(v); i += 2 {
			key, ok1 := v[i].(string)
			val, ok2 := v[i+1].(string)
			if !ok1 || !ok2 {
				return nil, false, fmt.Errorf("redis: unexpected hash reply element types %T/%T", v[i], v[i+1])
			}
			out[key] = val
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("redis: unexpected script reply %T", reply)
	}
}
