package media

import "errors"

var (
	// ErrNotSupported is returned by a host for a capability it does not have.
	ErrNotSupported = errors.New("operation not supported")

	ErrUnsupportedEnvironment = errors.New("recording is not supported in this environment")
	ErrPermissionDenied       = errors.New("permission to access media devices was denied")
	ErrAcquisition            = errors.New("failed to acquire media device")
	ErrNoActiveStream         = errors.New("no active stream attached")
	ErrNotRecording           = errors.New("not recording")
	ErrBusy                   = errors.New("previous recording is still finalizing")
	ErrSessionClosed          = errors.New("session is closed")
)
