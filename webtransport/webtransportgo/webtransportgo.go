// Package webtransportgo implements moqgo's webtransport.DialAddrFunc on
// top of github.com/quic-go/webtransport-go.
package webtransportgo

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	wt "github.com/quic-go/webtransport-go"

	"github.com/stinkydev/moqgo/quic"
	"github.com/stinkydev/moqgo/webtransport"
)

var _ webtransport.DialAddrFunc = Dial

// Dial establishes a WebTransport session against addr.
func Dial(ctx context.Context, addr string, header http.Header, tlsConfig *tls.Config) (*http.Response, quic.Connection, error) {
	d := wt.Dialer{
		TLSClientConfig: tlsConfig,
	}
	rsp, sess, err := d.Dial(ctx, addr, header)
	if err != nil {
		return rsp, nil, err
	}
	return rsp, &sessionWrapper{sess: sess}, nil
}

type sessionWrapper struct {
	sess *wt.Session
}

var _ quic.Connection = (*sessionWrapper)(nil)

func (w *sessionWrapper) AcceptStream(ctx context.Context) (quic.Stream, error) {
	s, err := w.sess.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	return &streamWrapper{s}, nil
}

func (w *sessionWrapper) AcceptUniStream(ctx context.Context) (quic.ReceiveStream, error) {
	s, err := w.sess.AcceptUniStream(ctx)
	if err != nil {
		return nil, err
	}
	return &receiveStreamWrapper{s}, nil
}

func (w *sessionWrapper) OpenStream() (quic.Stream, error) {
	s, err := w.sess.OpenStream()
	if err != nil {
		return nil, err
	}
	return &streamWrapper{s}, nil
}

func (w *sessionWrapper) OpenStreamSync(ctx context.Context) (quic.Stream, error) {
	s, err := w.sess.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &streamWrapper{s}, nil
}

func (w *sessionWrapper) OpenUniStream() (quic.SendStream, error) {
	s, err := w.sess.OpenUniStream()
	if err != nil {
		return nil, err
	}
	return &sendStreamWrapper{s}, nil
}

func (w *sessionWrapper) OpenUniStreamSync(ctx context.Context) (quic.SendStream, error) {
	s, err := w.sess.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &sendStreamWrapper{s}, nil
}

func (w *sessionWrapper) CloseWithError(code quic.ApplicationErrorCode, msg string) error {
	return w.sess.CloseWithError(wt.SessionErrorCode(code), msg)
}

func (w *sessionWrapper) Context() context.Context { return w.sess.Context() }

func (w *sessionWrapper) ConnectionState() quic.ConnectionState {
	return w.sess.ConnectionState()
}

func (w *sessionWrapper) LocalAddr() net.Addr  { return w.sess.LocalAddr() }
func (w *sessionWrapper) RemoteAddr() net.Addr { return w.sess.RemoteAddr() }

type streamWrapper struct {
	stream wt.Stream
}

var _ quic.Stream = (*streamWrapper)(nil)

func (s *streamWrapper) StreamID() quic.StreamID             { return quic.StreamID(s.stream.StreamID()) }
func (s *streamWrapper) Read(b []byte) (int, error)          { return s.stream.Read(b) }
func (s *streamWrapper) Write(b []byte) (int, error)         { return s.stream.Write(b) }
func (s *streamWrapper) Close() error                        { return s.stream.Close() }
func (s *streamWrapper) CancelRead(code quic.StreamErrorCode) { s.stream.CancelRead(wt.StreamErrorCode(code)) }
func (s *streamWrapper) CancelWrite(code quic.StreamErrorCode) {
	s.stream.CancelWrite(wt.StreamErrorCode(code))
}
func (s *streamWrapper) SetDeadline(t time.Time) error      { return s.stream.SetDeadline(t) }
func (s *streamWrapper) SetReadDeadline(t time.Time) error  { return s.stream.SetReadDeadline(t) }
func (s *streamWrapper) SetWriteDeadline(t time.Time) error { return s.stream.SetWriteDeadline(t) }
func (s *streamWrapper) Context() context.Context           { return s.stream.Context() }
func (s *streamWrapper) SetPriority(quic.Priority)          {} // WebTransport streams don't expose per-stream priority

type sendStreamWrapper struct {
	stream wt.SendStream
}

var _ quic.SendStream = (*sendStreamWrapper)(nil)

func (s *sendStreamWrapper) StreamID() quic.StreamID     { return quic.StreamID(s.stream.StreamID()) }
func (s *sendStreamWrapper) Write(b []byte) (int, error)  { return s.stream.Write(b) }
func (s *sendStreamWrapper) Close() error                { return s.stream.Close() }
func (s *sendStreamWrapper) CancelWrite(code quic.StreamErrorCode) {
	s.stream.CancelWrite(wt.StreamErrorCode(code))
}
func (s *sendStreamWrapper) SetWriteDeadline(t time.Time) error { return s.stream.SetWriteDeadline(t) }
func (s *sendStreamWrapper) Context() context.Context           { return s.stream.Context() }
func (s *sendStreamWrapper) SetPriority(quic.Priority)          {}

type receiveStreamWrapper struct {
	stream wt.ReceiveStream
}

var _ quic.ReceiveStream = (*receiveStreamWrapper)(nil)

func (s *receiveStreamWrapper) StreamID() quic.StreamID    { return quic.StreamID(s.stream.StreamID()) }
func (s *receiveStreamWrapper) Read(b []byte) (int, error) { return s.stream.Read(b) }
func (s *receiveStreamWrapper) CancelRead(code quic.StreamErrorCode) {
	s.stream.CancelRead(wt.StreamErrorCode(code))
}
func (s *receiveStreamWrapper) SetReadDeadline(t time.Time) error { return s.stream.SetReadDeadline(t) }
