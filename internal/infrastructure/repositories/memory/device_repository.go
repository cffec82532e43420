package memory

import (
	"context"
	"sync"

	"fallwatch/internal/core/domain"
	"fallwatch/internal/core/ports"
)

type MemoryDeviceRepository struct {
	devices map[domain.DeviceID]*domain.Device
	mu      sync.RWMutex
}

func NewMemoryDeviceRepository() ports.DeviceRepository {
	return &MemoryDeviceRepository{
		devices: make(map[domain.DeviceID]*domain.Device),
	}
}

// Upsert replaces the whole record under one lock, so concurrent writers can
// never leave a torn address/timestamp pair.
func (r *MemoryDeviceRepository) Upsert(ctx context.Context, device *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *device
	r.devices[device.ID] = &copied
	return nil
}

func (r *MemoryDeviceRepository) GetByID(ctx context.Context, id domain.DeviceID) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, exists := r.devices[id]
	if !exists {
		return nil, domain.ErrDeviceNotFound
	}

	copied := *device
	return &copied, nil
}

func (r *MemoryDeviceRepository) List(ctx context.Context) ([]*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]*domain.Device, 0, len(r.devices))
	for _, device := range r.devices {
		copied := *device
		devices = append(devices, &copied)
	}
	return devices, nil
}
