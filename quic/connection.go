// Package quic declares the transport-neutral surface the session engine
// needs from a QUIC connection: bidirectional and unidirectional stream
// creation/acceptance, each stream carrying a priority hint. The concrete
// implementation lives in quic/quicgo and wraps github.com/quic-go/quic-go;
// outside these two packages, only quic-go's quicvarint codec is imported
// (by internal/wire and moq).
package quic

import (
	"context"
	"net"

	quicgo "github.com/quic-go/quic-go"
)

// Connection is a QUIC connection capable of opening and accepting streams.
type Connection interface {
	// AcceptStream waits for and accepts the next incoming bidirectional stream.
	AcceptStream(ctx context.Context) (Stream, error)

	// AcceptUniStream waits for and accepts the next incoming unidirectional stream.
	AcceptUniStream(ctx context.Context) (ReceiveStream, error)

	// OpenStream opens a new bidirectional stream without blocking.
	OpenStream() (Stream, error)

	// OpenStreamSync opens a new bidirectional stream, blocking until one is available.
	OpenStreamSync(ctx context.Context) (Stream, error)

	// OpenUniStream opens a new unidirectional (send) stream without blocking.
	OpenUniStream() (SendStream, error)

	// OpenUniStreamSync opens a new unidirectional (send) stream, blocking until available.
	OpenUniStreamSync(ctx context.Context) (SendStream, error)

	// CloseWithError closes the connection, notifying the peer with code and msg.
	CloseWithError(code ApplicationErrorCode, msg string) error

	// Context is canceled when the connection closes.
	Context() context.Context

	ConnectionState() ConnectionState

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// ConnectionState mirrors the subset of quic-go's connection state useful
// for diagnostics (TLS version, negotiated ALPN, QUIC version).
type ConnectionState = quicgo.ConnectionState

// ApplicationErrorCode identifies an application-defined connection close reason.
type ApplicationErrorCode = quicgo.ApplicationErrorCode

// Config re-exports quic-go's dial/listen configuration knobs.
type Config = quicgo.Config
