package moq

import "sync"

// BroadcastProducer owns a set of tracks that together make up one
// broadcast. It is path-agnostic; a path is bound only once its Consumable
// is handed to Session.Publish.
type BroadcastProducer struct {
	mu     sync.Mutex
	tracks map[TrackName]*TrackProducer
	mux    *streamMux // set once published
	closed bool
}

// NewBroadcastProducer creates an empty broadcast, ready to have tracks
// added to it before or after publishing.
func NewBroadcastProducer() *BroadcastProducer {
	return &BroadcastProducer{tracks: make(map[TrackName]*TrackProducer)}
}

// CreateTrack adds a new track to the broadcast. The name must be unique
// within the broadcast.
func (b *BroadcastProducer) CreateTrack(track Track) (*TrackProducer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBroadcastEnded
	}
	if _, exists := b.tracks[track.Name]; exists {
		return nil, ErrInvalidArgument
	}
	tp := newTrackProducer(track.Name, track.Priority)
	if b.mux != nil {
		tp.bind(b.mux)
	}
	b.tracks[track.Name] = tp
	return tp, nil
}

// Consumable returns the read-only projection handed to Session.Publish.
func (b *BroadcastProducer) Consumable() *BroadcastConsumable {
	return &BroadcastConsumable{producer: b}
}

func (b *BroadcastProducer) bindMux(mux *streamMux) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mux = mux
	for _, tp := range b.tracks {
		tp.bind(mux)
	}
}

func (b *BroadcastProducer) lookupTrack(name TrackName) (*TrackProducer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tp, ok := b.tracks[name]
	return tp, ok
}

// Close ends every track in the broadcast.
func (b *BroadcastProducer) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	tracks := make([]*TrackProducer, 0, len(b.tracks))
	for _, tp := range b.tracks {
		tracks = append(tracks, tp)
	}
	b.mu.Unlock()

	for _, tp := range tracks {
		tp.Close()
	}
	return nil
}

// BroadcastConsumable is the read-only, shareable view of a BroadcastProducer
// used to resolve incoming subscriptions once the broadcast is published.
// Its practical lifetime is the shorter of the producer's and the session's.
type BroadcastConsumable struct {
	producer *BroadcastProducer
}

func (c *BroadcastConsumable) lookupTrack(name TrackName) (*TrackProducer, bool) {
	return c.producer.lookupTrack(name)
}

func (c *BroadcastConsumable) bindMux(mux *streamMux) {
	c.producer.bindMux(mux)
}
