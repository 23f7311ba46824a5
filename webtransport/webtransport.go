// Package webtransport abstracts WebTransport dialing so the session engine
// can treat a relay URL of the form https://host:port the same way
// regardless of whether the underlying session rides raw QUIC or
// WebTransport-over-HTTP/3.
package webtransport

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/stinkydev/moqgo/quic"
)

// DialAddrFunc establishes a WebTransport session against addr, returning
// the HTTP/3 response headers and the underlying QUIC connection abstraction.
type DialAddrFunc func(ctx context.Context, addr string, header http.Header, tlsConfig *tls.Config) (*http.Response, quic.Connection, error)
