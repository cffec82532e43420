package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"fallwatch/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// splitTestServer returns the host and port of an httptest server so the
// dispatcher can build its control URL the same way it does in production.
func splitTestServer(t *testing.T, srv *httptest.Server) (string, int) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func testDispatchConfig(port, maxAttempts int) DispatchConfig {
	return DispatchConfig{
		MaxAttempts:    maxAttempts,
		InitialDelay:   time.Millisecond,
		Multiplier:     2.0,
		AttemptTimeout: time.Second,
		PingTimeout:    time.Second,
		ControlPort:    port,
	}
}

func TestSetMode_ExhaustsRetriesAgainstServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	host, port := splitTestServer(t, srv)
	_, reg := newTestRegistry(60 * time.Second)

	d := NewCommandDispatcher(
		testDispatchConfig(port, 3),
		&StaticResolver{Address: host},
		reg,
		"aa:bb:cc",
		nil,
		zap.NewNop().Sugar(),
	)

	err := d.SetMode(context.Background(), domain.ModeStream)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDeviceUnreachable))
	assert.Equal(t, int32(3), attempts.Load(), "always-502 endpoint must see exactly maxAttempts requests")

	// Exhaustion must not touch the registry: mode stays unknown to it,
	// last-seen is not refreshed.
	_, lookupErr := reg.Lookup(context.Background(), "aa:bb:cc")
	assert.True(t, errors.Is(lookupErr, domain.ErrDeviceNotFound))
}

func TestSetMode_ClientErrorFailsWithoutRetry(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	host, port := splitTestServer(t, srv)
	_, reg := newTestRegistry(60 * time.Second)

	d := NewCommandDispatcher(
		testDispatchConfig(port, 5),
		&StaticResolver{Address: host},
		reg,
		"aa:bb:cc",
		nil,
		zap.NewNop().Sugar(),
	)

	err := d.SetMode(context.Background(), domain.ModeDetection)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCommandRejected), "a 4xx is a rejection, not unreachability")
	assert.False(t, errors.Is(err, domain.ErrDeviceUnreachable))
	assert.Equal(t, int32(1), attempts.Load(), "a rejected command must not consume further attempts")
}

func TestSetMode_SuccessRefreshesRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "detection", r.PostForm.Get("mode"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host, port := splitTestServer(t, srv)
	_, reg := newTestRegistry(60 * time.Second)

	d := NewCommandDispatcher(
		testDispatchConfig(port, 3),
		&StaticResolver{Address: host},
		reg,
		"aa:bb:cc",
		nil,
		zap.NewNop().Sugar(),
	)

	require.NoError(t, d.SetMode(context.Background(), domain.ModeDetection))

	device, err := reg.Lookup(context.Background(), "aa:bb:cc")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDetection, device.Mode)

	online, err := reg.IsOnline(context.Background(), "aa:bb:cc")
	require.NoError(t, err)
	assert.True(t, online, "a successful command implies the device is online")
}

func TestSetMode_RecoversAfterTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host, port := splitTestServer(t, srv)
	_, reg := newTestRegistry(60 * time.Second)

	d := NewCommandDispatcher(
		testDispatchConfig(port, 5),
		&StaticResolver{Address: host},
		reg,
		"aa:bb:cc",
		nil,
		zap.NewNop().Sugar(),
	)

	require.NoError(t, d.SetMode(context.Background(), domain.ModeStream))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestSetMode_InvalidModeRejectedLocally(t *testing.T) {
	_, reg := newTestRegistry(60 * time.Second)

	d := NewCommandDispatcher(
		testDispatchConfig(81, 3),
		&StaticResolver{Address: "192.0.2.1"},
		reg,
		"aa:bb:cc",
		nil,
		zap.NewNop().Sugar(),
	)

	err := d.SetMode(context.Background(), domain.ModeUnknown)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidMode))
}

func TestPing_SingleAttemptAndTouch(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ping", r.PostForm.Get("mode"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host, port := splitTestServer(t, srv)
	_, reg := newTestRegistry(60 * time.Second)
	require.NoError(t, reg.Upsert(context.Background(), "aa:bb:cc", host, domain.ModeStream))

	d := NewCommandDispatcher(
		testDispatchConfig(port, 5),
		&StaticResolver{Address: host},
		reg,
		"aa:bb:cc",
		nil,
		zap.NewNop().Sugar(),
	)

	require.NoError(t, d.Ping(context.Background()))
	assert.Equal(t, int32(1), attempts.Load())
}
