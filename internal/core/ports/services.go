package ports

import (
	"context"
	"io"
	"time"

	"fallwatch/internal/core/domain"
)

// DeviceRegistry tracks device identity, reachability and operating mode.
type DeviceRegistry interface {
	Upsert(ctx context.Context, id domain.DeviceID, address string, mode domain.Mode) error
	Lookup(ctx context.Context, id domain.DeviceID) (*domain.Device, error)
	IsOnline(ctx context.Context, id domain.DeviceID) (bool, error)
	Touch(ctx context.Context, id domain.DeviceID) error
}

// AddressResolver yields the device address the relay and dispatcher talk to.
// Implementations: static configured address or the self-reported registry.
type AddressResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// CommandDispatcher sends mode-change commands to the device control surface.
type CommandDispatcher interface {
	SetMode(ctx context.Context, mode domain.Mode) error
	Ping(ctx context.Context) error
}

// DetectionResult is the classification outcome returned to the caller.
type DetectionResult struct {
	Fall  bool
	Score float64
	Event *domain.DetectionEvent
}

// DetectionService runs the decode -> infer -> classify -> persist ->
// broadcast pipeline for one inbound frame.
type DetectionService interface {
	Process(ctx context.Context, raw []byte, location string, deviceID domain.DeviceID) (*DetectionResult, error)
}

// StreamSession is one admitted viewer's relay connection. Close releases
// the viewer slot exactly once regardless of how the session ends.
type StreamSession interface {
	Run(ctx context.Context, w io.Writer) error
	Close()
}

// StreamRelay proxies the device media stream to a bounded set of viewers.
type StreamRelay interface {
	Open(ctx context.Context) (StreamSession, error)
	ActiveSessions() int
}

// Model is the external classifier runtime. Infer takes the decoded signed
// tensor and returns the raw output vector.
type Model interface {
	Infer(ctx context.Context, tensor []int8) ([]float64, error)
}

// Broadcaster pushes events to connected real-time viewers, best-effort.
type Broadcaster interface {
	Broadcast(topic string, payload interface{})
}

// Clock lets services take the current time as a dependency in tests.
type Clock func() time.Time
