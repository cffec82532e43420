package services

import (
	"context"
	"errors"
	"fmt"

	"fallwatch/internal/core/domain"
	"fallwatch/internal/core/ports"
)

// StaticResolver always returns a configured device address.
type StaticResolver struct {
	Address string
}

func (r *StaticResolver) Resolve(ctx context.Context) (string, error) {
	if r.Address == "" {
		return "", fmt.Errorf("no device address configured")
	}
	return r.Address, nil
}

// RegistryResolver prefers the device's self-reported address and falls back
// to a configured default while the device has never reported in.
type RegistryResolver struct {
	Registry ports.DeviceRegistry
	DeviceID domain.DeviceID
	Fallback string
}

func (r *RegistryResolver) Resolve(ctx context.Context) (string, error) {
	device, err := r.Registry.Lookup(ctx, r.DeviceID)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) && r.Fallback != "" {
			return r.Fallback, nil
		}
		return "", fmt.Errorf("failed to resolve device address: %w", err)
	}
	if device.Address == "" {
		if r.Fallback != "" {
			return r.Fallback, nil
		}
		return "", fmt.Errorf("device %s has no known address", r.DeviceID)
	}
	return device.Address, nil
}
