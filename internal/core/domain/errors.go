package domain

import "errors"

var (
	ErrShortFrame        = errors.New("frame payload smaller than expected size")
	ErrUnauthorized      = errors.New("invalid API key")
	ErrInference         = errors.New("model invocation failed")
	ErrDeviceUnreachable = errors.New("device unreachable")
	ErrCommandRejected   = errors.New("command rejected by device")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrTooManyClients    = errors.New("maximum stream clients reached")
	ErrInvalidMode       = errors.New("invalid mode")
)
