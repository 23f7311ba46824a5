package moq

import (
	"context"
	"log/slog"

	"github.com/stinkydev/moqgo/quic"
)

// Accept completes the session handshake from the acceptor's side of an
// already-established QUIC connection. Client.Dial covers the dialer's
// side; Accept is what a relay (or a directly connected peer in tests)
// calls on its end of the same connection.
func Accept(ctx context.Context, conn quic.Connection, mode SessionMode, logger *slog.Logger) (*Session, error) {
	return newSession(ctx, conn, mode, false, logger)
}
