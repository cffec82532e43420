package services

import (
	"context"
	"testing"
	"time"

	"fallwatch/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolver(t *testing.T) {
	r := &StaticResolver{Address: "192.168.1.8"}
	addr, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.8", addr)

	_, err = (&StaticResolver{}).Resolve(context.Background())
	assert.Error(t, err)
}

func TestRegistryResolver_PrefersSelfReportedAddress(t *testing.T) {
	_, reg := newTestRegistry(60 * time.Second)
	ctx := context.Background()

	r := &RegistryResolver{Registry: reg, DeviceID: "aa:bb:cc", Fallback: "192.168.1.100"}

	// Before any self-report the configured fallback wins.
	addr, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.100", addr)

	require.NoError(t, reg.Upsert(ctx, "aa:bb:cc", "192.168.1.8", domain.ModeUnknown))
	addr, err = r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.8", addr)
}

func TestRegistryResolver_NoAddressAnywhere(t *testing.T) {
	_, reg := newTestRegistry(60 * time.Second)

	r := &RegistryResolver{Registry: reg, DeviceID: "aa:bb:cc"}
	_, err := r.Resolve(context.Background())
	assert.Error(t, err)
}
