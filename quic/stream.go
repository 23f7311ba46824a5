package quic

import (
	"context"
	"io"
	"time"

	quicgo "github.com/quic-go/quic-go"
)

// StreamID uniquely identifies a stream within a connection.
type StreamID = quicgo.StreamID

// StreamErrorCode identifies a stream-level reset/cancellation reason.
type StreamErrorCode = quicgo.StreamErrorCode

// Priority is a stream sending priority hint; lower values are sent first.
// It mirrors spec.md's track priority: 0 is highest, ties broken by
// creation order, which quic-go's default round-robin scheduler preserves
// for streams of equal priority.
type Priority int

// SendStream is a unidirectional stream used to write group/announce data.
type SendStream interface {
	io.Writer
	io.Closer

	StreamID() StreamID

	// SetPriority hints the underlying transport's stream scheduler. Not
	// every quic-go build exposes stream prioritization; when it doesn't,
	// the call is a harmless no-op.
	SetPriority(Priority)

	CancelWrite(StreamErrorCode)
	SetWriteDeadline(time.Time) error
	Context() context.Context
}

// ReceiveStream is a unidirectional stream used to read group/announce data.
type ReceiveStream interface {
	io.Reader

	StreamID() StreamID
	CancelRead(StreamErrorCode)
	SetReadDeadline(time.Time) error
}

// Stream is a bidirectional stream, used only for the initial session
// handshake exchange.
type Stream interface {
	SendStream
	ReceiveStream
	SetDeadline(time.Time) error
}
