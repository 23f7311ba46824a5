package moq

import (
	"sync"

	"github.com/stinkydev/moqgo/internal/wire"
	"github.com/stinkydev/moqgo/quic"
)

// GroupProducer is an append-only sink for one group's frames. Writing after
// Close or CancelWrite fails. CancelWrite aborts the group for every
// subscriber currently attached to it; a producer that is neither closed nor
// cancelled leaves its subscriber streams open.
type GroupProducer struct {
	sequence GroupSequence

	mu       sync.Mutex
	branches []quic.SendStream // one per subscriber stream currently fanned into
	closed   bool
	closeErr error
}

func newGroupProducer(seq GroupSequence) *GroupProducer {
	return &GroupProducer{sequence: seq}
}

// GroupSequence returns this group's sequence number.
func (g *GroupProducer) GroupSequence() GroupSequence { return g.sequence }

// attach registers a newly opened subscriber stream so subsequent writes
// fan out to it too. Frames already written before attachment are not
// replayed — a late subscriber's group simply starts from here.
func (g *GroupProducer) attach(s quic.SendStream) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		s.Close()
		return
	}
	g.branches = append(g.branches, s)
}

// WriteFrame writes payload as the next frame to every attached branch.
func (g *GroupProducer) WriteFrame(payload []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		if g.closeErr != nil {
			return g.closeErr
		}
		return ErrGroupFinished
	}

	var firstErr error
	live := g.branches[:0]
	for _, s := range g.branches {
		if err := wire.EncodeFrame(s, payload); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		live = append(live, s)
	}
	g.branches = live
	return firstErr
}

// Close finishes the group gracefully: every branch half-closes, signaling
// end-of-group to its reader.
func (g *GroupProducer) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		if g.closeErr != nil {
			return g.closeErr
		}
		return ErrGroupFinished
	}
	g.closed = true
	for _, s := range g.branches {
		s.Close()
	}
	g.branches = nil
	return nil
}

// CancelWrite aborts the group: every branch resets, and its reader
// observes the abort as an error scoped to that group only.
func (g *GroupProducer) CancelWrite(code quic.StreamErrorCode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	g.closeErr = ErrGroupAborted
	for _, s := range g.branches {
		s.CancelWrite(code)
	}
	g.branches = nil
}
