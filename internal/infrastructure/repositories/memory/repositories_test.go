package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fallwatch/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceRepository_UpsertAndGet(t *testing.T) {
	repo := NewMemoryDeviceRepository()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrDeviceNotFound))

	device := &domain.Device{
		ID:       "aa:bb:cc",
		Address:  "192.168.1.8",
		LastSeen: time.Now(),
		Mode:     domain.ModeStream,
	}
	require.NoError(t, repo.Upsert(ctx, device))

	got, err := repo.GetByID(ctx, "aa:bb:cc")
	require.NoError(t, err)
	assert.Equal(t, device.Address, got.Address)
	assert.Equal(t, device.Mode, got.Mode)

	// The stored record is a copy; mutating the original must not leak in.
	device.Address = "10.0.0.1"
	got, err = repo.GetByID(ctx, "aa:bb:cc")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.8", got.Address)
}

func TestDeviceRepository_ConcurrentUpserts(t *testing.T) {
	repo := NewMemoryDeviceRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.Upsert(ctx, &domain.Device{
				ID:      "aa:bb:cc",
				Address: fmt.Sprintf("192.168.1.%d", i),
				Mode:    domain.ModeDetection,
			})
		}(i)
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, "aa:bb:cc")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDetection, got.Mode)
	assert.NotEmpty(t, got.Address)
}

func TestEventRepository_PreservesInsertionOrder(t *testing.T) {
	repo := NewMemoryEventRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := repo.Insert(ctx, &domain.DetectionEvent{
			ID:     fmt.Sprintf("event-%d", i),
			Status: domain.StatusNormal,
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("event-%d", i), id)
	}

	events, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, event := range events {
		assert.Equal(t, fmt.Sprintf("event-%d", i), event.ID)
	}
}

func TestEventRepository_ListReturnsCopies(t *testing.T) {
	repo := NewMemoryEventRepository()
	ctx := context.Background()

	_, err := repo.Insert(ctx, &domain.DetectionEvent{ID: "event-1", Location: "hall"})
	require.NoError(t, err)

	events, err := repo.List(ctx)
	require.NoError(t, err)
	events[0].Location = "mutated"

	events, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hall", events[0].Location)
}
