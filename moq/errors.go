package moq

import "errors"

// Argument errors: malformed input caught synchronously at the call site.
var (
	ErrInvalidArgument  = errors.New("moq: invalid argument")
	ErrInvalidURL       = errors.New("moq: invalid relay URL")
	ErrUnsupportedMode  = errors.New("moq: session mode does not support this operation")
	ErrDuplicatePublish = errors.New("moq: broadcast path already published in this session")
)

// Transport errors: handshake/connection-level failures.
var (
	ErrNotConnected  = errors.New("moq: session is not connected")
	ErrHandshake     = errors.New("moq: session handshake failed")
	ErrDNS           = errors.New("moq: DNS resolution failed")
	ErrTLS           = errors.New("moq: TLS handshake failed")
	ErrSessionClosed = errors.New("moq: session is closed")
)

// Protocol errors: confined to a single stream; other streams continue.
var (
	ErrMalformedGroupHeader = errors.New("moq: malformed group header")
	ErrInvalidFrameLength   = errors.New("moq: invalid frame length")
	ErrUnknownTrackID       = errors.New("moq: unknown track id")
)

// Resource-lifecycle errors.
var (
	ErrGroupFinished  = errors.New("moq: group already finished")
	ErrGroupAborted   = errors.New("moq: group aborted")
	ErrTrackClosed    = errors.New("moq: track closed")
	ErrBroadcastEnded = errors.New("moq: broadcast ended")
)
