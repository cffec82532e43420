package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"fallwatch/internal/core/domain"
	"fallwatch/internal/core/ports"
	apperrors "fallwatch/pkg/errors"

	"github.com/redis/go-redis/v9"
)

const eventListKey = "fallwatch:events"

type RedisEventRepository struct {
	client *redis.Client
}

func NewRedisEventRepository(client *redis.Client) ports.EventRepository {
	return &RedisEventRepository{client: client}
}

// Insert appends to a list so List preserves insertion order.
func (r *RedisEventRepository) Insert(ctx context.Context, event *domain.DetectionEvent) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := r.client.RPush(ctx, eventListKey, data).Err(); err != nil {
		return "", apperrors.NewPersistenceError("failed to append event", err)
	}
	return event.ID, nil
}

func (r *RedisEventRepository) List(ctx context.Context) ([]*domain.DetectionEvent, error) {
	items, err := r.client.LRange(ctx, eventListKey, 0, -1).Result()
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list events", err)
	}

	events := make([]*domain.DetectionEvent, 0, len(items))
	for _, item := range items {
		var event domain.DetectionEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, &event)
	}
	return events, nil
}
