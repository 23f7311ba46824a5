package moq

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/stinkydev/moqgo/quic"
	"github.com/stinkydev/moqgo/quic/quicgo"
	"github.com/stinkydev/moqgo/webtransport"
	"github.com/stinkydev/moqgo/webtransport/webtransportgo"
)

var defaultQUICDialer quic.DialAddrFunc = quicgo.DialAddrEarly
var defaultWebTransportDialer webtransport.DialAddrFunc = webtransportgo.Dial

// Client dials a MoQ relay and yields a connected Session. It supports both
// native QUIC and WebTransport-over-HTTP/3, selected by the URL scheme.
type Client struct {
	// TLSConfig is used for every dial. If nil, a default with the URL's
	// host as ServerName is used.
	TLSConfig *tls.Config

	// QUICConfig configures the native QUIC transport; ignored for
	// WebTransport dials.
	QUICConfig *quic.Config

	// Logger receives session diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// DialQUIC overrides the native QUIC dial function; nil selects
	// quic/quicgo's default.
	DialQUIC quic.DialAddrFunc

	// DialWebTransport overrides the WebTransport dial function; nil
	// selects webtransport/webtransportgo's default.
	DialWebTransport webtransport.DialAddrFunc
}

// Dial connects to a MoQ relay at addr with the given capability mode.
// addr's scheme selects the transport: "moqt"/"quic" for native QUIC,
// "https"/"moqt-wt" for WebTransport.
func (c *Client) Dial(ctx context.Context, addr string, mode SessionMode) (*Session, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, err)
	}

	tlsConfig := c.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: u.Hostname()}
	}

	var conn quic.Connection
	switch u.Scheme {
	case "https", "moqt-wt":
		dial := c.DialWebTransport
		if dial == nil {
			dial = defaultWebTransportDialer
		}
		_, conn, err = dial(ctx, addr, http.Header{}, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrHandshake, err)
		}
	case "moqt", "quic", "":
		dial := c.DialQUIC
		if dial == nil {
			dial = defaultQUICDialer
		}
		conn, err = dial(ctx, u.Host, tlsConfig, c.QUICConfig)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrHandshake, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	return newSession(ctx, conn, mode, true, c.Logger)
}
