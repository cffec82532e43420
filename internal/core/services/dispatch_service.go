package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fallwatch/internal/core/domain"
	"fallwatch/internal/core/ports"
	"fallwatch/pkg/circuitbreaker"
	"fallwatch/pkg/retry"

	"go.uber.org/zap"
)

// errRetryableStatus marks server-error responses so the retry policy can
// distinguish them from client-error rejections.
var errRetryableStatus = errors.New("retryable upstream status")

// errRejectedStatus marks 4xx responses that must fail without retrying.
var errRejectedStatus = errors.New("command rejected by device")

// DispatchConfig parameterizes the retry ladder for device commands.
type DispatchConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	Multiplier     float64
	AttemptTimeout time.Duration
	PingTimeout    time.Duration
	ControlPort    int
}

type dispatchService struct {
	cfg      DispatchConfig
	resolver ports.AddressResolver
	registry ports.DeviceRegistry
	deviceID domain.DeviceID
	client   *http.Client
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.SugaredLogger
}

// NewCommandDispatcher builds the dispatcher for the device control surface.
// breaker may be nil to dispatch without circuit breaking.
func NewCommandDispatcher(
	cfg DispatchConfig,
	resolver ports.AddressResolver,
	registry ports.DeviceRegistry,
	deviceID domain.DeviceID,
	breaker *circuitbreaker.CircuitBreaker,
	logger *zap.SugaredLogger,
) ports.CommandDispatcher {
	return &dispatchService{
		cfg:      cfg,
		resolver: resolver,
		registry: registry,
		deviceID: deviceID,
		client:   &http.Client{},
		breaker:  breaker,
		logger:   logger,
	}
}

// SetMode walks the full retry ladder and, on success, refreshes the
// registry's mode and last-seen. Exhaustion surfaces as ErrDeviceUnreachable
// but deliberately does not mark the device offline: liveness stays a pure
// function of last-seen, so one failed command cannot flap it.
func (s *dispatchService) SetMode(ctx context.Context, mode domain.Mode) error {
	if mode != domain.ModeStream && mode != domain.ModeDetection {
		return fmt.Errorf("%w: %s", domain.ErrInvalidMode, mode)
	}

	policy := retry.Config{
		MaxAttempts:        s.cfg.MaxAttempts,
		InitialDelay:       s.cfg.InitialDelay,
		MaxDelay:           s.cfg.AttemptTimeout,
		Multiplier:         s.cfg.Multiplier,
		AttemptTimeout:     s.cfg.AttemptTimeout,
		NonRetryableErrors: []error{errRejectedStatus},
	}

	if err := s.dispatch(ctx, string(mode), policy); err != nil {
		s.logger.Errorw("mode command failed",
			"mode", mode,
			"error", err,
		)
		return wrapDispatchFailure(err)
	}

	if err := s.registry.Upsert(ctx, s.deviceID, "", mode); err != nil {
		s.logger.Errorw("failed to record mode in registry", "error", err)
	}
	s.logger.Infow("device mode set", "mode", mode)
	return nil
}

// Ping probes the control endpoint with a single short attempt.
func (s *dispatchService) Ping(ctx context.Context) error {
	policy := retry.Config{
		MaxAttempts:        1,
		InitialDelay:       s.cfg.InitialDelay,
		MaxDelay:           s.cfg.PingTimeout,
		Multiplier:         1.0,
		AttemptTimeout:     s.cfg.PingTimeout,
		NonRetryableErrors: []error{errRejectedStatus},
	}

	if err := s.dispatch(ctx, "ping", policy); err != nil {
		return wrapDispatchFailure(err)
	}

	if err := s.registry.Touch(ctx, s.deviceID); err != nil {
		s.logger.Errorw("failed to refresh last-seen after ping", "error", err)
	}
	return nil
}

// wrapDispatchFailure keeps the device's refusal distinct from exhaustion:
// a 4xx is the command being wrong, not the network being down.
func wrapDispatchFailure(err error) error {
	if errors.Is(err, errRejectedStatus) {
		return fmt.Errorf("%w: %v", domain.ErrCommandRejected, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrDeviceUnreachable, err)
}

func (s *dispatchService) dispatch(ctx context.Context, mode string, policy retry.Config) error {
	address, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("http://%s:%d/set_mode", address, s.cfg.ControlPort)

	attempt := func(ctx context.Context) error {
		return s.sendOnce(ctx, endpoint, mode)
	}

	run := func(ctx context.Context) error {
		return retry.Do(ctx, policy, attempt)
	}

	if s.breaker != nil {
		return s.breaker.Execute(ctx, run)
	}
	return run(ctx)
}

func (s *dispatchService) sendOnce(ctx context.Context, endpoint, mode string) error {
	form := url.Values{"mode": {mode}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		// Network failure or timeout: retryable.
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", errRetryableStatus, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status %d", errRejectedStatus, resp.StatusCode)
	}
}
