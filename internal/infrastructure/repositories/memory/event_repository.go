package memory

import (
	"context"
	"sync"

	"fallwatch/internal/core/domain"
	"fallwatch/internal/core/ports"
)

type MemoryEventRepository struct {
	events []*domain.DetectionEvent
	mu     sync.RWMutex
}

func NewMemoryEventRepository() ports.EventRepository {
	return &MemoryEventRepository{}
}

// Insert appends; events are immutable once stored.
func (r *MemoryEventRepository) Insert(ctx context.Context, event *domain.DetectionEvent) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *event
	r.events = append(r.events, &copied)
	return copied.ID, nil
}

func (r *MemoryEventRepository) List(ctx context.Context) ([]*domain.DetectionEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*domain.DetectionEvent, 0, len(r.events))
	for _, event := range r.events {
		copied := *event
		events = append(events, &copied)
	}
	return events, nil
}
