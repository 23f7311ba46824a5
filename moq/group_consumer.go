package moq

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go/quicvarint"

	"github.com/stinkydev/moqgo/internal/wire"
	"github.com/stinkydev/moqgo/quic"
)

// GroupConsumer is a lazy, finite, non-restartable sequence of frames for one
// group, backed by a single incoming QUIC receive stream.
type GroupConsumer struct {
	sequence GroupSequence
	stream   quic.ReceiveStream
	reader   quicvarint.Reader // wraps stream once, reused for every ReadFrame

	done    bool
	doneErr error // nil once end-of-group is reached cleanly
}

// newGroupConsumer takes the reader that already decoded this stream's
// group header, so header and frame decoding share one buffering wrapper.
func newGroupConsumer(seq GroupSequence, s quic.ReceiveStream, r quicvarint.Reader) *GroupConsumer {
	return &GroupConsumer{sequence: seq, stream: s, reader: r}
}

// GroupSequence returns this group's sequence number.
func (g *GroupConsumer) GroupSequence() GroupSequence { return g.sequence }

// ReadFrame blocks for the next frame, io.EOF at a graceful end-of-group, or
// an error wrapping ErrGroupAborted if the group was aborted.
func (g *GroupConsumer) ReadFrame() ([]byte, error) {
	if g.done {
		if g.doneErr != nil {
			return nil, g.doneErr
		}
		return nil, io.EOF
	}

	payload, err := wire.DecodeFrame(g.reader)
	if err != nil {
		g.done = true
		if errors.Is(err, io.EOF) {
			return nil, err
		}
		g.doneErr = fmt.Errorf("%w: %w", ErrGroupAborted, err)
		return nil, g.doneErr
	}
	return payload, nil
}

// CancelRead abandons the group early; the peer observes a reset.
func (g *GroupConsumer) CancelRead(code quic.StreamErrorCode) {
	if g.done {
		return
	}
	g.done = true
	g.doneErr = ErrGroupAborted
	g.stream.CancelRead(code)
}

// SetReadDeadline bounds how long ReadFrame may block.
func (g *GroupConsumer) SetReadDeadline(t time.Time) error {
	return g.stream.SetReadDeadline(t)
}
