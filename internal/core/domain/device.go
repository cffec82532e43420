package domain

import (
	"time"
)

type DeviceID string

// Mode is the device's operating mode as last reported or commanded.
type Mode string

const (
	ModeUnknown   Mode = "unknown"
	ModeStream    Mode = "stream"
	ModeDetection Mode = "detection"
)

// ParseMode validates a caller-supplied mode string. Only stream and
// detection are acceptable command targets.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeStream, ModeDetection:
		return Mode(s), true
	default:
		return ModeUnknown, false
	}
}

// Device is one remote camera peer, keyed by its stable hardware identity.
// The address is whatever the device last reported; DHCP may move it.
type Device struct {
	ID       DeviceID
	Address  string
	LastSeen time.Time
	Mode     Mode
}

// OnlineAt reports whether the device counts as online at the given instant.
// Liveness is derived from the last self-report, never stored.
func (d *Device) OnlineAt(now time.Time, window time.Duration) bool {
	if d == nil {
		return false
	}
	return now.Sub(d.LastSeen) < window
}
