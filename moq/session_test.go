package moq

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func connectPair(t *testing.T, modeA, modeB SessionMode) (*Session, *Session) {
	t.Helper()
	connA, connB := newFakeConnPair()

	type result struct {
		s   *Session
		err error
	}
	dialCh := make(chan result, 1)
	acceptCh := make(chan result, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		s, err := newSession(ctx, connA, modeA, true, nil)
		dialCh <- result{s, err}
	}()
	go func() {
		s, err := newSession(ctx, connB, modeB, false, nil)
		acceptCh <- result{s, err}
	}()

	dr := <-dialCh
	ar := <-acceptCh
	require.NoError(t, dr.err)
	require.NoError(t, ar.err)
	return dr.s, ar.s
}

func TestSessionHandshakeAndClose(t *testing.T) {
	a, b := connectPair(t, ModeBoth, ModeBoth)
	require.True(t, a.IsConnected())
	require.True(t, b.IsConnected())

	require.NoError(t, a.Close())
	require.NoError(t, a.Close()) // idempotent
}

func TestPublishSubscribeGroupOrder(t *testing.T) {
	pub, sub := connectPair(t, ModePublishOnly, ModeSubscribeOnly)
	defer pub.Close()
	defer sub.Close()

	broadcast := NewBroadcastProducer()
	track, err := broadcast.CreateTrack(Track{Name: "video", Priority: 0})
	require.NoError(t, err)
	require.NoError(t, pub.Publish("alice.example/room", broadcast.Consumable()))

	consumer, err := sub.Consume("alice.example/room")
	require.NoError(t, err)
	trackConsumer, err := consumer.SubscribeTrack(Track{Name: "video", Priority: 0})
	require.NoError(t, err)

	// give the subscribe control message time to reach the publisher before
	// the group is created, so the subscriber is attached from the start.
	time.Sleep(50 * time.Millisecond)

	group, err := track.CreateGroup(0)
	require.NoError(t, err)
	require.NoError(t, group.WriteFrame([]byte("frame-0")))
	require.NoError(t, group.WriteFrame([]byte("frame-1")))
	require.NoError(t, group.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	gc, err := trackConsumer.NextGroup(ctx)
	require.NoError(t, err)
	require.Equal(t, GroupSequence(0), gc.GroupSequence())

	f0, err := gc.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, "frame-0", string(f0))

	f1, err := gc.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, "frame-1", string(f1))

	_, err = gc.ReadFrame()
	require.ErrorIs(t, err, io.EOF)
}

func TestCreateGroupFinishesPrevious(t *testing.T) {
	pub, sub := connectPair(t, ModePublishOnly, ModeSubscribeOnly)
	defer pub.Close()
	defer sub.Close()

	broadcast := NewBroadcastProducer()
	track, err := broadcast.CreateTrack(Track{Name: "video", Priority: 0})
	require.NoError(t, err)
	require.NoError(t, pub.Publish("alice.example/room", broadcast.Consumable()))

	consumer, err := sub.Consume("alice.example/room")
	require.NoError(t, err)
	trackConsumer, err := consumer.SubscribeTrack(Track{Name: "video", Priority: 0})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	g0, err := track.CreateGroup(0)
	require.NoError(t, err)
	require.NoError(t, g0.WriteFrame([]byte("only-frame")))

	// Creating group 1 must implicitly finish group 0.
	_, err = track.CreateGroup(1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	gc0, err := trackConsumer.NextGroup(ctx)
	require.NoError(t, err)
	require.Equal(t, GroupSequence(0), gc0.GroupSequence())

	_, err = gc0.ReadFrame()
	require.NoError(t, err)
	_, err = gc0.ReadFrame()
	require.ErrorIs(t, err, io.EOF)
}

func TestAnnounceAlternation(t *testing.T) {
	pub, sub := connectPair(t, ModePublishOnly, ModeSubscribeOnly)
	defer pub.Close()
	defer sub.Close()

	origin := sub.OriginConsumer()

	broadcast := NewBroadcastProducer()
	require.NoError(t, pub.Publish("alice.example/room", broadcast.Consumable()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ann, ok := origin.Announced(ctx)
	require.True(t, ok)
	require.Equal(t, BroadcastPath("alice.example/room"), ann.Path)
	require.True(t, ann.Active)

	require.NoError(t, pub.Unpublish("alice.example/room"))

	ann, ok = origin.Announced(ctx)
	require.True(t, ok)
	require.False(t, ann.Active)
}

func TestDuplicatePublishRejected(t *testing.T) {
	pub, sub := connectPair(t, ModePublishOnly, ModeSubscribeOnly)
	defer pub.Close()
	defer sub.Close()

	b1 := NewBroadcastProducer()
	require.NoError(t, pub.Publish("alice.example/room", b1.Consumable()))

	b2 := NewBroadcastProducer()
	err := pub.Publish("alice.example/room", b2.Consumable())
	require.ErrorIs(t, err, ErrDuplicatePublish)
}

func TestModeEnforcement(t *testing.T) {
	pub, sub := connectPair(t, ModePublishOnly, ModeSubscribeOnly)
	defer pub.Close()
	defer sub.Close()

	_, err := pub.Consume("anything")
	require.ErrorIs(t, err, ErrUnsupportedMode)

	b := NewBroadcastProducer()
	err = sub.Publish("anything", b.Consumable())
	require.ErrorIs(t, err, ErrUnsupportedMode)
}
