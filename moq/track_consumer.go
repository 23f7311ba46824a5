package moq

import (
	"context"
	"io"
	"sync"
)

// TrackConsumer is the read side of one subscription: a lazy, unbounded
// sequence of groups delivered as they arrive on the wire.
type TrackConsumer struct {
	path    BroadcastPath
	name    TrackName
	trackID uint64
	session *Session

	mu       sync.Mutex
	queue    []*GroupConsumer
	queuedCh chan struct{}
	closed   bool
	closeErr error
}

func newTrackConsumer(path BroadcastPath, name TrackName, trackID uint64, session *Session) *TrackConsumer {
	return &TrackConsumer{
		path:     path,
		name:     name,
		trackID:  trackID,
		session:  session,
		queuedCh: make(chan struct{}, 1),
	}
}

// Name returns the subscribed track's name.
func (t *TrackConsumer) Name() TrackName { return t.name }

// enqueue is called by the session's stream demultiplexer when a new group
// arrives for this subscription.
func (t *TrackConsumer) enqueue(g *GroupConsumer) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		g.CancelRead(0)
		return
	}
	t.queue = append(t.queue, g)
	t.mu.Unlock()

	select {
	case t.queuedCh <- struct{}{}:
	default:
	}
}

// NextGroup blocks for the next group to arrive. It returns io.EOF once Close
// is called or the session is closed gracefully, and the session's failure
// error once the session has terminated. A withdrawal of the broadcast does
// not end the subscription.
func (t *TrackConsumer) NextGroup(ctx context.Context) (*GroupConsumer, error) {
	for {
		t.mu.Lock()
		if len(t.queue) > 0 {
			g := t.queue[0]
			t.queue = t.queue[1:]
			t.mu.Unlock()
			return g, nil
		}
		if t.closed {
			err := t.closeErr
			t.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return nil, err
		}
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.queuedCh:
		}
	}
}

// closeWithError terminates the subscription's group queue without
// notifying the peer; used when the session itself is going away.
func (t *TrackConsumer) closeWithError(err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.closeErr = err
	pending := t.queue
	t.queue = nil
	t.mu.Unlock()

	for _, g := range pending {
		g.CancelRead(0)
	}
	select {
	case t.queuedCh <- struct{}{}:
	default:
	}
}

// Close drops the subscription and notifies the peer.
func (t *TrackConsumer) Close() error {
	t.closeWithError(nil)
	t.session.unsubscribeTrack(t.trackID)
	return nil
}
