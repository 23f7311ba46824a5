package moq

// BroadcastConsumer represents interest in one broadcast path. It is created
// lazily by Session.Consume and never itself blocks: subscribing to a track
// that never appears simply never yields a group.
type BroadcastConsumer struct {
	path    BroadcastPath
	session *Session
}

func newBroadcastConsumer(path BroadcastPath, session *Session) *BroadcastConsumer {
	return &BroadcastConsumer{path: path, session: session}
}

// Path returns the broadcast path this consumer is bound to.
func (b *BroadcastConsumer) Path() BroadcastPath { return b.path }

// SubscribeTrack requests a track from the broadcast, returning a consumer
// that starts receiving whichever groups the publisher creates from now on.
func (b *BroadcastConsumer) SubscribeTrack(track Track) (*TrackConsumer, error) {
	return b.session.subscribeTrack(b.path, track)
}
