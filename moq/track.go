package moq

// TrackPriority ranks tracks within a broadcast; 0 is highest priority.
// Ties are broken by creation order.
type TrackPriority uint8

// BroadcastPath identifies a broadcast within a session's namespace. It must
// be a non-empty UTF-8 string.
type BroadcastPath string

// TrackName identifies a track within its broadcast; unique per broadcast.
type TrackName string

// Track is the identity half of a track: its name and priority hint. The
// data half (groups of frames) lives on TrackProducer/TrackConsumer.
type Track struct {
	Name     TrackName
	Priority TrackPriority
}

// GroupSequence is a publisher-chosen, not-necessarily-contiguous sequence
// number for a group within a track.
type GroupSequence uint64
