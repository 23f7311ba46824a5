package quicgo

import (
	"time"

	"github.com/quic-go/quic-go"

	moqtquic "github.com/stinkydev/moqgo/quic"
)

// prioritizer is implemented by quic-go send streams on builds that support
// per-stream send prioritization. Older quic-go releases don't expose it,
// so SetPriority degrades to a no-op rather than failing the build.
type prioritizer interface {
	SetPriority(int)
}

type streamWrapper struct {
	quic.Stream
}

var _ moqtquic.Stream = (*streamWrapper)(nil)

func (s *streamWrapper) SetPriority(p moqtquic.Priority) {
	if pr, ok := s.Stream.(prioritizer); ok {
		pr.SetPriority(int(p))
	}
}

func (s *streamWrapper) SetDeadline(t time.Time) error {
	return s.Stream.SetDeadline(t)
}

type sendStreamWrapper struct {
	quic.SendStream
}

var _ moqtquic.SendStream = (*sendStreamWrapper)(nil)

func (s *sendStreamWrapper) SetPriority(p moqtquic.Priority) {
	if pr, ok := s.SendStream.(prioritizer); ok {
		pr.SetPriority(int(p))
	}
}

type receiveStreamWrapper struct {
	quic.ReceiveStream
}

var _ moqtquic.ReceiveStream = (*receiveStreamWrapper)(nil)
