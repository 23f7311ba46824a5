package moq

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/stinkydev/moqgo/internal/wire"
	"github.com/stinkydev/moqgo/quic"
)

// streamMux maps (track_id, group_sequence) onto QUIC streams for one
// session: it opens outgoing group streams with a track's priority hint,
// and demultiplexes incoming group streams by reading their header before
// handing them to the registered TrackConsumer. An incoming stream whose
// track_id has no registered consumer is drained and discarded.
type streamMux struct {
	conn   quic.Connection
	logger *slog.Logger

	mu        sync.RWMutex
	consumers map[uint64]*TrackConsumer
}

func newStreamMux(conn quic.Connection, logger *slog.Logger) *streamMux {
	return &streamMux{
		conn:      conn,
		logger:    logger,
		consumers: make(map[uint64]*TrackConsumer),
	}
}

func (m *streamMux) registerConsumer(trackID uint64, tc *TrackConsumer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumers[trackID] = tc
}

func (m *streamMux) unregisterConsumer(trackID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.consumers, trackID)
}

// openGroupStream opens a new outgoing stream for a group, tagged with the
// track's priority hint, and writes the fixed group header.
func (m *streamMux) openGroupStream(trackID uint64, seq GroupSequence, priority TrackPriority) (quic.SendStream, error) {
	s, err := m.conn.OpenUniStreamSync(context.Background())
	if err != nil {
		return nil, err
	}
	s.SetPriority(quic.Priority(priority))

	header := wire.GroupHeader{GroupSequence: uint64(seq), TrackID: trackID}
	if err := header.Encode(s); err != nil {
		s.CancelWrite(0)
		return nil, err
	}
	return s, nil
}

// acceptLoop runs for the lifetime of the session, demultiplexing every
// incoming unidirectional stream as a group.
func (m *streamMux) acceptLoop(ctx context.Context) {
	for {
		rs, err := m.conn.AcceptUniStream(ctx)
		if err != nil {
			return
		}
		go m.demux(rs)
	}
}

func (m *streamMux) demux(rs quic.ReceiveStream) {
	r := wire.NewReader(rs)
	header, err := wire.DecodeGroupHeader(r)
	if err != nil {
		rs.CancelRead(0)
		return
	}

	m.mu.RLock()
	tc, ok := m.consumers[header.TrackID]
	m.mu.RUnlock()

	if !ok {
		if m.logger != nil {
			m.logger.Warn("moq: dropping group for unknown track",
				"track_id", header.TrackID,
				"group_sequence", header.GroupSequence,
			)
		}
		io.Copy(io.Discard, rs)
		rs.CancelRead(0)
		return
	}

	tc.enqueue(newGroupConsumer(GroupSequence(header.GroupSequence), rs, r))
}
