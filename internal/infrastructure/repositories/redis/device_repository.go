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

type RedisDeviceRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisDeviceRepository(client *redis.Client) ports.DeviceRepository {
	return &RedisDeviceRepository{
		client: client,
		prefix: "fallwatch:device:",
	}
}

func (r *RedisDeviceRepository) deviceKey(id domain.DeviceID) string {
	return r.prefix + string(id)
}

const deviceIndexKey = "fallwatch:devices"

func (r *RedisDeviceRepository) Upsert(ctx context.Context, device *domain.Device) error {
	data, err := json.Marshal(device)
	if err != nil {
		return fmt.Errorf("failed to marshal device: %w", err)
	}

	// Record and index membership in one pipeline so the write is not torn.
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.deviceKey(device.ID), data, 0)
	pipe.SAdd(ctx, deviceIndexKey, string(device.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewPersistenceError("failed to upsert device", err)
	}
	return nil
}

func (r *RedisDeviceRepository) GetByID(ctx context.Context, id domain.DeviceID) (*domain.Device, error) {
	data, err := r.client.Get(ctx, r.deviceKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrDeviceNotFound
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to get device", err)
	}

	var device domain.Device
	if err := json.Unmarshal([]byte(data), &device); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device: %w", err)
	}
	return &device, nil
}

func (r *RedisDeviceRepository) List(ctx context.Context) ([]*domain.Device, error) {
	ids, err := r.client.SMembers(ctx, deviceIndexKey).Result()
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list devices", err)
	}

	var devices []*domain.Device
	for _, id := range ids {
		device, err := r.GetByID(ctx, domain.DeviceID(id))
		if err != nil {
			// Skip records that disappeared between SMembers and Get.
			continue
		}
		devices = append(devices, device)
	}
	return devices, nil
}
