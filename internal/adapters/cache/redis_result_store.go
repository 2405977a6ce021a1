package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/data-ai/M54-data-export-service/internal/domain"
)

// resultKeyPrefix is part of the persisted contract: other services read
// completed results directly from redis under these keys.
const resultKeyPrefix = "export_result:"

// RedisResultStore caches completed export results under export_result:{id}.
type RedisResultStore struct {
	client *redis.Client
}

func NewRedisResultStore(client *redis.Client) *RedisResultStore {
	return &RedisResultStore{client: client}
}

func (s *RedisResultStore) Put(ctx context.Context, result domain.ExportResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, resultKeyPrefix+result.RequestID, raw, ttl).Err()
}

func (s *RedisResultStore) Get(ctx context.Context, requestID string) (*domain.ExportResult, error) {
	raw, err := s.client.Get(ctx, resultKeyPrefix+requestID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out domain.ExportResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
