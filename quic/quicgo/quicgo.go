// Package quicgo implements the quic.Connection/Stream surface on top of
// github.com/quic-go/quic-go.
package quicgo

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/quic-go/quic-go"

	moqtquic "github.com/stinkydev/moqgo/quic"
)

// DialAddrEarly dials addr using quic-go's 0-RTT-capable dialer and returns
// the connection behind moqgo's transport-neutral interface.
func DialAddrEarly(ctx context.Context, addr string, tlsConfig *tls.Config, cfg *moqtquic.Config) (moqtquic.Connection, error) {
	conn, err := quic.DialAddrEarly(ctx, addr, tlsConfig, cfg)
	if err != nil {
		return nil, err
	}
	return &connWrapper{conn: conn}, nil
}

var _ moqtquic.Connection = (*connWrapper)(nil)

type connWrapper struct {
	conn quic.Connection
}

func (w *connWrapper) AcceptStream(ctx context.Context) (moqtquic.Stream, error) {
	s, err := w.conn.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	return &streamWrapper{s}, nil
}

func (w *connWrapper) AcceptUniStream(ctx context.Context) (moqtquic.ReceiveStream, error) {
	s, err := w.conn.AcceptUniStream(ctx)
	if err != nil {
		return nil, err
	}
	return &receiveStreamWrapper{s}, nil
}

func (w *connWrapper) OpenStream() (moqtquic.Stream, error) {
	s, err := w.conn.OpenStream()
	if err != nil {
		return nil, err
	}
	return &streamWrapper{s}, nil
}

func (w *connWrapper) OpenStreamSync(ctx context.Context) (moqtquic.Stream, error) {
	s, err := w.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &streamWrapper{s}, nil
}

func (w *connWrapper) OpenUniStream() (moqtquic.SendStream, error) {
	s, err := w.conn.OpenUniStream()
	if err != nil {
		return nil, err
	}
	return &sendStreamWrapper{s}, nil
}

func (w *connWrapper) OpenUniStreamSync(ctx context.Context) (moqtquic.SendStream, error) {
	s, err := w.conn.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &sendStreamWrapper{s}, nil
}

func (w *connWrapper) CloseWithError(code moqtquic.ApplicationErrorCode, msg string) error {
	return w.conn.CloseWithError(code, msg)
}

func (w *connWrapper) Context() context.Context { return w.conn.Context() }

func (w *connWrapper) ConnectionState() moqtquic.ConnectionState {
	return w.conn.ConnectionState()
}

func (w *connWrapper) LocalAddr() net.Addr  { return w.conn.LocalAddr() }
func (w *connWrapper) RemoteAddr() net.Addr { return w.conn.RemoteAddr() }
