package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fallwatch/internal/core/domain"
	"fallwatch/internal/core/ports"
)

type registryService struct {
	deviceRepo     ports.DeviceRepository
	livenessWindow time.Duration
	now            ports.Clock

	// writeMu serializes the read-merge-write in Upsert. Without it a Touch
	// racing a self-report can read the old address and write it back,
	// losing the new one until the device reports again.
	writeMu sync.Mutex
}

// NewDeviceRegistry builds the registry over a device repository. The clock
// is injectable so liveness boundaries can be tested deterministically.
func NewDeviceRegistry(deviceRepo ports.DeviceRepository, livenessWindow time.Duration, now ports.Clock) ports.DeviceRegistry {
	if now == nil {
		now = time.Now
	}
	return &registryService{
		deviceRepo:     deviceRepo,
		livenessWindow: livenessWindow,
		now:            now,
	}
}

// Upsert records a self-report or successful control exchange. Address is
// last-write-wins; mode is only updated when the caller knows it.
func (s *registryService) Upsert(ctx context.Context, id domain.DeviceID, address string, mode domain.Mode) error {
	if id == "" {
		return fmt.Errorf("device identity must not be empty")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	device := &domain.Device{
		ID:       id,
		Address:  address,
		LastSeen: s.now(),
		Mode:     mode,
	}

	if existing, err := s.deviceRepo.GetByID(ctx, id); err == nil {
		if address == "" {
			device.Address = existing.Address
		}
		if mode == domain.ModeUnknown {
			device.Mode = existing.Mode
		}
	}

	if err := s.deviceRepo.Upsert(ctx, device); err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}
	return nil
}

func (s *registryService) Lookup(ctx context.Context, id domain.DeviceID) (*domain.Device, error) {
	return s.deviceRepo.GetByID(ctx, id)
}

// IsOnline computes liveness on demand. Unknown identities are offline.
func (s *registryService) IsOnline(ctx context.Context, id domain.DeviceID) (bool, error) {
	device, err := s.deviceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return false, nil
		}
		return false, err
	}
	return device.OnlineAt(s.now(), s.livenessWindow), nil
}

// Touch refreshes last-seen without changing address or mode.
func (s *registryService) Touch(ctx context.Context, id domain.DeviceID) error {
	return s.Upsert(ctx, id, "", domain.ModeUnknown)
}
