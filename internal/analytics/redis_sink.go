// internal/analytics/redis_sink.go
package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink appends JSON-encoded events to a Redis list so an external
// collector can LRANGE/LPOP them.
type RedisSink struct {
	client *redis.Client
	key    string
}

func NewRedisSink(client *redis.Client, key string) *RedisSink {
	return &RedisSink{client: client, key: key}
}

func (s *RedisSink) Append(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}
