// Package moq implements the client-side Media-over-QUIC session engine:
// connecting to a relay, announcing and consuming broadcasts, and
// multiplexing their tracks/groups/frames over QUIC streams.
//
// The object graph mirrors the wire hierarchy: a Session owns zero or more
// published BroadcastProducers and on-demand BroadcastConsumers; a broadcast
// owns TrackProducers/TrackConsumers; a track owns a sequence of
// GroupProducers/GroupConsumers; a group is an ordered sequence of Frames.
package moq
