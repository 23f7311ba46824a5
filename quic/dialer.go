package quic

import (
	"context"
	"crypto/tls"
)

// DialAddrFunc dials a QUIC connection to addr. Tests and alternative
// transports substitute this to avoid a real network dial.
type DialAddrFunc func(ctx context.Context, addr string, tlsConfig *tls.Config, quicConfig *Config) (Connection, error)
