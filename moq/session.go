package moq

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/quic-go/quic-go/quicvarint"

	"github.com/stinkydev/moqgo/internal/wire"
	"github.com/stinkydev/moqgo/quic"
)

// Session is one live connection to a peer (typically a relay), exchanging
// announcements, subscriptions and groups over a single QUIC connection.
type Session struct {
	id     string
	conn   quic.Connection
	mode   SessionMode
	logger *slog.Logger
	mux    *streamMux

	controlStream quic.Stream
	controlReader quicvarint.Reader // wraps controlStream once, reused for every envelope
	controlMu     sync.Mutex

	stateMu sync.RWMutex
	state   SessionState

	originProd *originProducer

	nextTrackID atomic.Uint64

	mu               sync.Mutex
	published        map[BroadcastPath]*BroadcastConsumable
	trackConsumers   map[uint64]*TrackConsumer   // my subscriptions, by my track_id
	subscriberOwners map[uint64]*TrackProducer   // peer subscriptions to my tracks, by their track_id

	onBroadcastAnnounced func(Announcement)
	onBroadcastCancelled func(Announcement)
	onConnectionClosed   func(error)

	closeOnce sync.Once
	doneCh    chan struct{}
}

// newSession performs the session handshake over conn and starts its
// background read loops. isDialer determines which side opens the control
// stream; the other side accepts it.
func newSession(ctx context.Context, conn quic.Connection, mode SessionMode, isDialer bool, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		id:               fmt.Sprintf("%p", conn),
		conn:             conn,
		mode:             mode,
		logger:           logger,
		state:            StateConnecting,
		originProd:       newOriginProducer(),
		published:        make(map[BroadcastPath]*BroadcastConsumable),
		trackConsumers:   make(map[uint64]*TrackConsumer),
		subscriberOwners: make(map[uint64]*TrackProducer),
		doneCh:           make(chan struct{}),
	}
	s.mux = newStreamMux(conn, logger)

	var cs quic.Stream
	var err error
	if isDialer {
		cs, err = conn.OpenStreamSync(ctx)
	} else {
		cs, err = conn.AcceptStream(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("moq: control stream handshake: %w", err)
	}
	if _, err := cs.Write([]byte{byte(mode)}); err != nil {
		return nil, fmt.Errorf("moq: control stream handshake: %w", err)
	}
	var peerMode [1]byte
	if _, err := readFull(cs, peerMode[:]); err != nil {
		return nil, fmt.Errorf("moq: control stream handshake: %w", err)
	}
	s.controlStream = cs
	s.controlReader = wire.NewReader(cs)

	s.setState(StateConnected)

	go s.controlReadLoop()
	go s.mux.acceptLoop(context.Background())
	go s.watchConnFailure()

	return s, nil
}

func readFull(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *Session) setState(st SessionState) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// IsConnected reports whether the session is currently usable.
func (s *Session) IsConnected() bool { return s.State() == StateConnected }

// IsAlive reports whether the session has not yet reached a terminal state.
func (s *Session) IsAlive() bool {
	switch s.State() {
	case StateClosed, StateTerminated:
		return false
	default:
		return true
	}
}

// SessionID returns an opaque, process-local identifier for diagnostics.
func (s *Session) SessionID() string { return s.id }

// Mode returns the session's negotiated capability mode.
func (s *Session) Mode() SessionMode { return s.mode }

// ConnectionState exposes the underlying transport's negotiated state.
func (s *Session) ConnectionState() quic.ConnectionState { return s.conn.ConnectionState() }

// LocalAddr returns the local transport address.
func (s *Session) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// RemoteAddr returns the remote transport address.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// SetOnBroadcastAnnounced registers a callback fired whenever the peer
// announces a broadcast as active, in addition to OriginConsumer.
func (s *Session) SetOnBroadcastAnnounced(fn func(Announcement)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onBroadcastAnnounced = fn
}

// SetOnBroadcastCancelled registers a callback fired whenever the peer
// withdraws a broadcast.
func (s *Session) SetOnBroadcastCancelled(fn func(Announcement)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onBroadcastCancelled = fn
}

// SetOnConnectionClosed registers a callback fired once the session reaches
// a terminal state, with the error that caused it (nil for a graceful
// Close).
func (s *Session) SetOnConnectionClosed(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnectionClosed = fn
}

// OriginConsumer returns the session's single announcement feed.
func (s *Session) OriginConsumer() *OriginConsumer {
	return newOriginConsumer(s.conn.Context(), s.originProd.bus)
}

// Publish makes a broadcast available to the peer under path, announcing it
// immediately.
func (s *Session) Publish(path BroadcastPath, consumable *BroadcastConsumable) error {
	if !s.mode.canPublish() {
		return ErrUnsupportedMode
	}
	if !s.IsConnected() {
		return ErrSessionClosed
	}

	s.mu.Lock()
	if _, exists := s.published[path]; exists {
		s.mu.Unlock()
		return ErrDuplicatePublish
	}
	s.published[path] = consumable
	s.mu.Unlock()

	consumable.bindMux(s.mux)

	return s.sendAnnounce(path, true)
}

// Unpublish withdraws a previously published broadcast.
func (s *Session) Unpublish(path BroadcastPath) error {
	s.mu.Lock()
	consumable, exists := s.published[path]
	if exists {
		delete(s.published, path)
	}
	s.mu.Unlock()
	if !exists {
		return ErrInvalidArgument
	}
	consumable.producer.Close()
	return s.sendAnnounce(path, false)
}

// Consume returns a lazily-bound handle to a broadcast the peer may or may
// not currently have active.
func (s *Session) Consume(path BroadcastPath) (*BroadcastConsumer, error) {
	if !s.mode.canSubscribe() {
		return nil, ErrUnsupportedMode
	}
	return newBroadcastConsumer(path, s), nil
}

func (s *Session) allocateTrackID() uint64 {
	return s.nextTrackID.Add(1) - 1
}

func (s *Session) subscribeTrack(path BroadcastPath, track Track) (*TrackConsumer, error) {
	if !s.IsConnected() {
		return nil, ErrSessionClosed
	}
	trackID := s.allocateTrackID()
	tc := newTrackConsumer(path, track.Name, trackID, s)

	s.mu.Lock()
	s.trackConsumers[trackID] = tc
	s.mu.Unlock()
	s.mux.registerConsumer(trackID, tc)

	body := wire.EncodeSubscribeControl(wire.SubscribeControl{
		TrackID:       trackID,
		BroadcastPath: string(path),
		TrackName:     string(track.Name),
		Priority:      uint8(track.Priority),
	})
	if err := s.sendControl(wire.ControlSubscribe, body); err != nil {
		s.mu.Lock()
		delete(s.trackConsumers, trackID)
		s.mu.Unlock()
		s.mux.unregisterConsumer(trackID)
		return nil, err
	}
	return tc, nil
}

func (s *Session) unsubscribeTrack(trackID uint64) {
	s.mu.Lock()
	delete(s.trackConsumers, trackID)
	s.mu.Unlock()
	s.mux.unregisterConsumer(trackID)

	if s.IsConnected() {
		body := wire.EncodeUnsubscribeControl(wire.UnsubscribeControl{TrackID: trackID})
		_ = s.sendControl(wire.ControlUnsubscribe, body)
	}
}

func (s *Session) sendAnnounce(path BroadcastPath, active bool) error {
	var buf bytes.Buffer
	if err := (wire.AnnounceRecord{Path: string(path), Active: active}).Encode(&buf); err != nil {
		return err
	}
	return s.sendControl(wire.ControlAnnounce, buf.Bytes())
}

func (s *Session) sendControl(typ wire.ControlMessageType, body []byte) error {
	if !s.IsConnected() {
		return ErrSessionClosed
	}
	s.controlMu.Lock()
	defer s.controlMu.Unlock()
	return wire.EncodeControlEnvelope(s.controlStream, typ, body)
}

func (s *Session) controlReadLoop() {
	for {
		typ, body, err := wire.DecodeControlEnvelope(s.controlReader)
		if err != nil {
			s.terminate(err)
			return
		}
		switch typ {
		case wire.ControlAnnounce:
			var buf bytes.Buffer
			buf.Write(body)
			rec, err := wire.DecodeAnnounceRecord(&buf)
			if err != nil {
				continue
			}
			path := BroadcastPath(rec.Path)
			s.originProd.announce(path, rec.Active)

			s.mu.Lock()
			var cb func(Announcement)
			if rec.Active {
				cb = s.onBroadcastAnnounced
			} else {
				cb = s.onBroadcastCancelled
			}
			s.mu.Unlock()
			if cb != nil {
				cb(Announcement{Path: path, Active: rec.Active})
			}

		case wire.ControlSubscribe:
			sc, err := wire.DecodeSubscribeControl(body)
			if err != nil {
				continue
			}
			s.mu.Lock()
			consumable, ok := s.published[BroadcastPath(sc.BroadcastPath)]
			s.mu.Unlock()
			if !ok {
				continue
			}
			tp, ok := consumable.lookupTrack(TrackName(sc.TrackName))
			if !ok {
				continue
			}
			tp.addSubscriber(sc.TrackID)
			s.mu.Lock()
			s.subscriberOwners[sc.TrackID] = tp
			s.mu.Unlock()

		case wire.ControlUnsubscribe:
			uc, err := wire.DecodeUnsubscribeControl(body)
			if err != nil {
				continue
			}
			s.mu.Lock()
			tp, ok := s.subscriberOwners[uc.TrackID]
			delete(s.subscriberOwners, uc.TrackID)
			s.mu.Unlock()
			if ok {
				tp.removeSubscriber(uc.TrackID)
			}
		}
	}
}

func (s *Session) watchConnFailure() {
	select {
	case <-s.conn.Context().Done():
		s.terminate(s.conn.Context().Err())
	case <-s.doneCh:
	}
}

func (s *Session) terminate(err error) {
	switch s.State() {
	case StateClosed, StateTerminated, StateClosing:
		return // already ending via Close, or already ended
	}
	s.setState(StateTerminated)
	s.finish(err)
}

func (s *Session) finish(err error) {
	s.originProd.close()

	s.mu.Lock()
	consumers := make([]*TrackConsumer, 0, len(s.trackConsumers))
	for _, tc := range s.trackConsumers {
		consumers = append(consumers, tc)
	}
	cb := s.onConnectionClosed
	s.mu.Unlock()

	for _, tc := range consumers {
		tc.closeWithError(err)
	}

	if cb != nil {
		cb(err)
	}
}

// Close gracefully ends the session: every published broadcast is withdrawn
// and the underlying connection is closed. Close is idempotent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		paths := make([]BroadcastPath, 0, len(s.published))
		for p := range s.published {
			paths = append(paths, p)
		}
		s.mu.Unlock()

		for _, p := range paths {
			s.sendAnnounce(p, false)
		}

		s.setState(StateClosing)
		close(s.doneCh)
		err = s.conn.CloseWithError(0, "session closed")
		s.setState(StateClosed)
		s.finish(nil)
	})
	return err
}
