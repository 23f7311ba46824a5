package moq

import "context"

// OriginConsumer yields the lazy, non-restartable sequence of Announcement
// values observed from the peer. At most one is live per session.
type OriginConsumer struct {
	bus *announceBus
	ctx context.Context
}

func newOriginConsumer(ctx context.Context, bus *announceBus) *OriginConsumer {
	return &OriginConsumer{bus: bus, ctx: ctx}
}

// Announced blocks for the next announcement, or returns false once the
// session closes or ctx is canceled.
func (c *OriginConsumer) Announced(ctx context.Context) (Announcement, bool) {
	mergedCtx := ctx
	if mergedCtx == nil {
		mergedCtx = c.ctx
	}
	return c.bus.Recv(mergedCtx)
}

// TryAnnounced is the non-blocking variant of Announced.
func (c *OriginConsumer) TryAnnounced() (Announcement, bool) {
	return c.bus.TryRecv()
}

// originProducer is the session engine's write side of the announce bus; it
// is not part of the public surface since only the engine observes peer
// publish events.
type originProducer struct {
	bus *announceBus
}

func newOriginProducer() *originProducer {
	return &originProducer{bus: newAnnounceBus()}
}

func (p *originProducer) announce(path BroadcastPath, active bool) {
	p.bus.Send(Announcement{Path: path, Active: active})
}

func (p *originProducer) close() {
	p.bus.Close()
}
