package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"fallwatch/internal/core/domain"
	"fallwatch/internal/core/ports"

	"go.uber.org/zap"
)

// RelayConfig parameterizes the stream relay.
type RelayConfig struct {
	MaxClients        int
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	UpstreamTimeout   time.Duration
	ChunkSize         int
	ControlPort       int
	StreamPath        string

	// OnReconnect, when set, is called once per reconnection attempt.
	OnReconnect func()
}

type relayService struct {
	cfg      RelayConfig
	resolver ports.AddressResolver
	registry ports.DeviceRegistry
	deviceID domain.DeviceID
	logger   *zap.SugaredLogger

	mu     sync.Mutex
	active int

	// fetch opens one upstream stream; replaceable in tests.
	fetch func(ctx context.Context, url string) (io.ReadCloser, error)
}

// NewStreamRelay builds the bounded-concurrency relay for the device's
// multipart media stream.
func NewStreamRelay(
	cfg RelayConfig,
	resolver ports.AddressResolver,
	registry ports.DeviceRegistry,
	deviceID domain.DeviceID,
	logger *zap.SugaredLogger,
) ports.StreamRelay {
	r := &relayService{
		cfg:      cfg,
		resolver: resolver,
		registry: registry,
		deviceID: deviceID,
		logger:   logger,
	}
	client := &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: cfg.UpstreamTimeout,
		},
	}
	r.fetch = func(ctx context.Context, url string) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
		}
		return resp.Body, nil
	}
	return r
}

// Open admits one viewer. The cap check and the increment are a single
// critical section, so concurrent requests can never admit one too many.
func (r *relayService) Open(ctx context.Context) (ports.StreamSession, error) {
	r.mu.Lock()
	if r.active >= r.cfg.MaxClients {
		r.mu.Unlock()
		return nil, domain.ErrTooManyClients
	}
	r.active++
	r.mu.Unlock()

	session := &relaySession{relay: r}

	online, err := r.registry.IsOnline(ctx, r.deviceID)
	if err != nil || !online {
		session.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrDeviceUnreachable, err)
		}
		return nil, domain.ErrDeviceUnreachable
	}

	return session, nil
}

func (r *relayService) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *relayService) release() {
	r.mu.Lock()
	r.active--
	r.mu.Unlock()
}

type relaySession struct {
	relay     *relayService
	closeOnce sync.Once
}

// Close releases the viewer slot. Safe to call from any exit path; the
// release happens exactly once.
func (s *relaySession) Close() {
	s.closeOnce.Do(s.relay.release)
}

// Run forwards upstream chunks to w until the caller's context is cancelled
// or device liveness is lost. Upstream failures trigger reconnection with a
// capped backoff delay rather than ending the session.
func (s *relaySession) Run(ctx context.Context, w io.Writer) error {
	defer s.Close()

	r := s.relay
	delay := r.cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		address, err := r.resolver.Resolve(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDeviceUnreachable, err)
		}
		url := fmt.Sprintf("http://%s:%d%s", address, r.cfg.ControlPort, r.cfg.StreamPath)

		body, err := r.fetch(ctx, url)
		if err == nil {
			r.logger.Debugw("upstream stream connected", "url", url)
			err = s.forward(ctx, body, w)
			body.Close()
			if err == nil || ctx.Err() != nil {
				return ctx.Err()
			}
			// A successful connection resets the backoff ladder.
			delay = r.cfg.ReconnectDelay
		}

		r.logger.Warnw("upstream stream disconnected, reconnecting",
			"error", err,
			"delay", delay,
		)
		if r.cfg.OnReconnect != nil {
			r.cfg.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > r.cfg.MaxReconnectDelay {
			delay = r.cfg.MaxReconnectDelay
		}

		// Rejoin only while the device still counts as online. A healthy
		// mid-stream connection is never cut by the clock.
		online, err := r.registry.IsOnline(ctx, r.deviceID)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDeviceUnreachable, err)
		}
		if !online {
			return domain.ErrDeviceUnreachable
		}
	}
}

// forward copies upstream chunks to the viewer, flushing between chunks so
// multipart boundaries reach the client promptly.
func (s *relaySession) forward(ctx context.Context, body io.Reader, w io.Writer) error {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, s.relay.cfg.ChunkSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return err
		}
	}
}
