package moq

import "sync"

// TrackProducer is the write side of one track within a broadcast. It fans
// each group's frames out to every subscriber currently registered for the
// track, opening one outgoing stream per subscriber per group.
type TrackProducer struct {
	name     TrackName
	priority TrackPriority

	mu           sync.Mutex
	opener       *streamMux
	subscribers  map[uint64]struct{}
	currentGroup *GroupProducer
	closed       bool
}

func newTrackProducer(name TrackName, priority TrackPriority) *TrackProducer {
	return &TrackProducer{
		name:        name,
		priority:    priority,
		subscribers: make(map[uint64]struct{}),
	}
}

// Name returns the track's name.
func (t *TrackProducer) Name() TrackName { return t.name }

// Priority returns the track's priority hint.
func (t *TrackProducer) Priority() TrackPriority { return t.priority }

func (t *TrackProducer) bind(mux *streamMux) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opener = mux
}

// addSubscriber registers a subscriber's track_id; if a group is already in
// progress, the subscriber is attached to it mid-flight so it starts
// receiving from here rather than waiting for the next CreateGroup.
func (t *TrackProducer) addSubscriber(trackID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.subscribers[trackID] = struct{}{}

	if t.currentGroup != nil && t.opener != nil {
		s, err := t.opener.openGroupStream(trackID, t.currentGroup.sequence, t.priority)
		if err == nil {
			t.currentGroup.attach(s)
		}
	}
}

func (t *TrackProducer) removeSubscriber(trackID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subscribers, trackID)
}

// CreateGroup starts a new group, implicitly finishing whatever group this
// producer previously created.
func (t *TrackProducer) CreateGroup(seq GroupSequence) (*GroupProducer, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTrackClosed
	}
	prev := t.currentGroup
	g := newGroupProducer(seq)
	t.currentGroup = g
	opener := t.opener
	subscribers := make([]uint64, 0, len(t.subscribers))
	for id := range t.subscribers {
		subscribers = append(subscribers, id)
	}
	priority := t.priority
	t.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	if opener != nil {
		for _, id := range subscribers {
			s, err := opener.openGroupStream(id, seq, priority)
			if err != nil {
				continue
			}
			g.attach(s)
		}
	}
	return g, nil
}

// Close ends the track; the group in progress, if any, is finished.
func (t *TrackProducer) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	g := t.currentGroup
	t.currentGroup = nil
	t.mu.Unlock()

	if g != nil {
		return g.Close()
	}
	return nil
}
