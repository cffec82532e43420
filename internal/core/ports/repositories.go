package ports

import (
	"context"

	"fallwatch/internal/core/domain"
)

type DeviceRepository interface {
	Upsert(ctx context.Context, device *domain.Device) error
	GetByID(ctx context.Context, id domain.DeviceID) (*domain.Device, error)
	List(ctx context.Context) ([]*domain.Device, error)
}

// EventRepository is an append-only store; List returns insertion order.
type EventRepository interface {
	Insert(ctx context.Context, event *domain.DetectionEvent) (string, error)
	List(ctx context.Context) ([]*domain.DetectionEvent, error)
}

// BlobStore persists detection snapshots and returns an opaque reference.
type BlobStore interface {
	SaveImage(pixels []byte, width, height int) (string, error)
}
