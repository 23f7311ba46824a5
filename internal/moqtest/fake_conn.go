// Package moqtest provides an in-memory quic.Connection pair for exercising
// the session engine and the manager without a real network or QUIC stack.
// Opening a stream on one side delivers it to the other side's Accept call;
// each stream direction is an unbounded buffered queue so a writer never
// blocks on a slow or absent reader, mirroring real QUIC flow control well
// within its window.
package moqtest

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stinkydev/moqgo/quic"
)

// NewPair returns two connected, in-memory quic.Connection implementations
// wired to each other.
func NewPair() (quic.Connection, quic.Connection) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &fakeConnection{ctx: ctx, cancel: cancel, incomingBidi: make(chan net.Conn, 16), incomingUni: make(chan net.Conn, 16)}
	b := &fakeConnection{ctx: ctx, cancel: cancel, incomingBidi: make(chan net.Conn, 16), incomingUni: make(chan net.Conn, 16)}
	a.peer = b
	b.peer = a
	return a, b
}

var fakeStreamIDs atomic.Uint64

// byteQueue is an unbounded, closable byte buffer safe for one writer and
// one reader running concurrently.
type byteQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
}

func newByteQueue() *byteQueue {
	q := &byteQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *byteQueue) Write(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, io.ErrClosedPipe
	}
	n, _ := q.buf.Write(p)
	q.cond.Broadcast()
	return n, nil
}

func (q *byteQueue) Read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.buf.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.buf.Len() == 0 {
		return 0, io.EOF
	}
	return q.buf.Read(p)
}

func (q *byteQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
	return nil
}

// duplexConn is a net.Conn backed by two independent byteQueues, one per
// direction.
type duplexConn struct {
	rd, wr             *byteQueue
	localAddr, remAddr net.Addr
}

func newDuplexPair() (net.Conn, net.Conn) {
	ab, ba := newByteQueue(), newByteQueue()
	a := &duplexConn{rd: ba, wr: ab, localAddr: fakeAddr("a"), remAddr: fakeAddr("b")}
	b := &duplexConn{rd: ab, wr: ba, localAddr: fakeAddr("b"), remAddr: fakeAddr("a")}
	return a, b
}

func (c *duplexConn) Read(p []byte) (int, error)       { return c.rd.Read(p) }
func (c *duplexConn) Write(p []byte) (int, error)      { return c.wr.Write(p) }
func (c *duplexConn) Close() error                     { return c.wr.Close() }
func (c *duplexConn) LocalAddr() net.Addr              { return c.localAddr }
func (c *duplexConn) RemoteAddr() net.Addr             { return c.remAddr }
func (c *duplexConn) SetDeadline(time.Time) error      { return nil }
func (c *duplexConn) SetReadDeadline(time.Time) error  { return nil }
func (c *duplexConn) SetWriteDeadline(time.Time) error { return nil }

type fakeConnection struct {
	ctx    context.Context
	cancel context.CancelFunc
	peer   *fakeConnection

	incomingBidi chan net.Conn
	incomingUni  chan net.Conn
}

func (c *fakeConnection) OpenStream() (quic.Stream, error) {
	return c.OpenStreamSync(context.Background())
}

func (c *fakeConnection) OpenStreamSync(ctx context.Context) (quic.Stream, error) {
	local, remote := newDuplexPair()
	id := quic.StreamID(fakeStreamIDs.Add(1))
	select {
	case c.peer.incomingBidi <- remote:
	case <-ctx.Done():
		local.Close()
		remote.Close()
		return nil, ctx.Err()
	}
	return &fakeStream{Conn: local, id: id, ctx: c.ctx}, nil
}

func (c *fakeConnection) AcceptStream(ctx context.Context) (quic.Stream, error) {
	select {
	case conn := <-c.incomingBidi:
		return &fakeStream{Conn: conn, id: quic.StreamID(fakeStreamIDs.Add(1)), ctx: c.ctx}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

func (c *fakeConnection) OpenUniStream() (quic.SendStream, error) {
	return c.OpenUniStreamSync(context.Background())
}

func (c *fakeConnection) OpenUniStreamSync(ctx context.Context) (quic.SendStream, error) {
	local, remote := newDuplexPair()
	id := quic.StreamID(fakeStreamIDs.Add(1))
	select {
	case c.peer.incomingUni <- remote:
	case <-ctx.Done():
		local.Close()
		remote.Close()
		return nil, ctx.Err()
	}
	return &fakeSendStream{Conn: local, id: id, ctx: c.ctx}, nil
}

func (c *fakeConnection) AcceptUniStream(ctx context.Context) (quic.ReceiveStream, error) {
	select {
	case conn := <-c.incomingUni:
		return &fakeReceiveStream{Conn: conn, id: quic.StreamID(fakeStreamIDs.Add(1))}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

func (c *fakeConnection) CloseWithError(code quic.ApplicationErrorCode, msg string) error {
	c.cancel()
	return nil
}

func (c *fakeConnection) Context() context.Context { return c.ctx }

func (c *fakeConnection) ConnectionState() quic.ConnectionState { return quic.ConnectionState{} }

func (c *fakeConnection) LocalAddr() net.Addr  { return fakeAddr("local") }
func (c *fakeConnection) RemoteAddr() net.Addr { return fakeAddr("remote") }

type fakeAddr string

func (a fakeAddr) Network() string { return "pipe" }
func (a fakeAddr) String() string  { return string(a) }

type fakeStream struct {
	net.Conn
	id  quic.StreamID
	ctx context.Context
}

func (s *fakeStream) StreamID() quic.StreamID          { return s.id }
func (s *fakeStream) SetPriority(quic.Priority)        {}
func (s *fakeStream) CancelWrite(quic.StreamErrorCode) { s.Conn.Close() }
func (s *fakeStream) CancelRead(quic.StreamErrorCode)  { s.Conn.Close() }
func (s *fakeStream) Context() context.Context         { return s.ctx }
func (s *fakeStream) SetDeadline(t time.Time) error    { return s.Conn.SetDeadline(t) }

type fakeSendStream struct {
	net.Conn
	id  quic.StreamID
	ctx context.Context
}

func (s *fakeSendStream) StreamID() quic.StreamID          { return s.id }
func (s *fakeSendStream) SetPriority(quic.Priority)        {}
func (s *fakeSendStream) CancelWrite(quic.StreamErrorCode) { s.Conn.Close() }
func (s *fakeSendStream) Context() context.Context         { return s.ctx }

type fakeReceiveStream struct {
	net.Conn
	id quic.StreamID
}

func (s *fakeReceiveStream) StreamID() quic.StreamID         { return s.id }
func (s *fakeReceiveStream) CancelRead(quic.StreamErrorCode) { s.Conn.Close() }
