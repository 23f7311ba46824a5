package manager

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stinkydev/moqgo/internal/moqtest"
	"github.com/stinkydev/moqgo/moq"
	"github.com/stinkydev/moqgo/quic"
)

// dialerFor returns a quic.DialAddrFunc that always hands back conn,
// standing in for a real network dial in tests.
func dialerFor(conn quic.Connection) quic.DialAddrFunc {
	return func(ctx context.Context, addr string, tlsConfig *tls.Config, quicConfig *quic.Config) (quic.Connection, error) {
		return conn, nil
	}
}

func TestCatalogGatingStartsOnlyRequestedTrack(t *testing.T) {
	clientConn, serverConn := moqtest.NewPair()

	serverCh := make(chan *moq.Session, 1)
	go func() {
		sess, err := moq.Accept(context.Background(), serverConn, moq.ModeBoth, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		serverCh <- sess
	}()

	mgr, err := New(Config{
		ServerURL:              "moqt://relay",
		Namespace:              "room1",
		Mode:                   moq.ModeSubscribeOnly,
		DialQUIC:               dialerFor(clientConn),
		BroadcastRetryInterval: 30 * time.Millisecond,
	})
	require.NoError(t, err)

	received := make(chan []byte, 4)
	require.NoError(t, mgr.AddSubscription(SubscriptionConfig{
		TrackName:    "video/hd",
		DataCallback: func(d []byte) { received <- d },
	}))
	require.NoError(t, mgr.AddSubscription(SubscriptionConfig{
		TrackName:    "audio/data",
		DataCallback: func(d []byte) { t.Errorf("audio/data should never start: got %q", d) },
	}))

	require.NoError(t, mgr.Start(context.Background()))
	defer mgr.Stop()

	var server *moq.Session
	select {
	case server = <-serverCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server side never accepted")
	}

	bp := moq.NewBroadcastProducer()
	catalogTrack, err := bp.CreateTrack(moq.Track{Name: "catalog.json"})
	require.NoError(t, err)
	videoTrack, err := bp.CreateTrack(moq.Track{Name: "video/hd"})
	require.NoError(t, err)
	require.NoError(t, server.Publish("room1", bp.Consumable()))

	time.Sleep(150 * time.Millisecond) // let the manager observe the announce and subscribe to catalog.json

	catData := []byte(`{"tracks":[{"trackName":"video/hd","type":"video","priority":10}]}`)
	cg, err := catalogTrack.CreateGroup(0)
	require.NoError(t, err)
	require.NoError(t, cg.WriteFrame(catData))
	require.NoError(t, cg.Close())

	time.Sleep(150 * time.Millisecond) // let the reconciliation pass start the video/hd worker

	vg, err := videoTrack.CreateGroup(0)
	require.NoError(t, err)
	require.NoError(t, vg.WriteFrame([]byte("F1")))
	require.NoError(t, vg.Close())

	select {
	case data := <-received:
		assert.Equal(t, []byte("F1"), data)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for video/hd frame")
	}

	mgr.mu.Lock()
	_, audioStarted := mgr.activeSubs["audio/data"]
	_, videoStarted := mgr.activeSubs["video/hd"]
	mgr.mu.Unlock()
	assert.False(t, audioStarted)
	assert.True(t, videoStarted)
}

func TestCatalogWithdrawalStopsWorker(t *testing.T) {
	clientConn, serverConn := moqtest.NewPair()

	serverCh := make(chan *moq.Session, 1)
	go func() {
		sess, err := moq.Accept(context.Background(), serverConn, moq.ModeBoth, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		serverCh <- sess
	}()

	mgr, err := New(Config{
		ServerURL:              "moqt://relay",
		Namespace:              "room1",
		Mode:                   moq.ModeSubscribeOnly,
		DialQUIC:               dialerFor(clientConn),
		BroadcastRetryInterval: 30 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, mgr.AddSubscription(SubscriptionConfig{
		TrackName:    "video/hd",
		DataCallback: func(d []byte) {},
	}))
	require.NoError(t, mgr.Start(context.Background()))
	defer mgr.Stop()

	server := <-serverCh
	bp := moq.NewBroadcastProducer()
	catalogTrack, err := bp.CreateTrack(moq.Track{Name: "catalog.json"})
	require.NoError(t, err)
	_, err = bp.CreateTrack(moq.Track{Name: "video/hd"})
	require.NoError(t, err)
	require.NoError(t, server.Publish("room1", bp.Consumable()))

	time.Sleep(150 * time.Millisecond)

	publish := func(data []byte) {
		g, err := catalogTrack.CreateGroup(moq.GroupSequence(time.Now().UnixNano()))
		require.NoError(t, err)
		require.NoError(t, g.WriteFrame(data))
		require.NoError(t, g.Close())
	}

	publish([]byte(`{"tracks":[{"trackName":"video/hd","type":"video","priority":10}]}`))
	time.Sleep(150 * time.Millisecond)

	mgr.mu.Lock()
	_, started := mgr.activeSubs["video/hd"]
	mgr.mu.Unlock()
	require.True(t, started, "video/hd should have started")

	publish([]byte(`{"tracks":[]}`))
	time.Sleep(150 * time.Millisecond)

	mgr.mu.Lock()
	_, stillActive := mgr.activeSubs["video/hd"]
	mgr.mu.Unlock()
	assert.False(t, stillActive, "video/hd should have stopped once withdrawn from the catalog")
}

func TestHangCatalogGating(t *testing.T) {
	clientConn, serverConn := moqtest.NewPair()

	serverCh := make(chan *moq.Session, 1)
	go func() {
		sess, err := moq.Accept(context.Background(), serverConn, moq.ModeBoth, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		serverCh <- sess
	}()

	mgr, err := New(Config{
		ServerURL:              "moqt://relay",
		Namespace:              "room1",
		Mode:                   moq.ModeSubscribeOnly,
		DialQUIC:               dialerFor(clientConn),
		BroadcastRetryInterval: 30 * time.Millisecond,
	})
	require.NoError(t, err)

	received := make(chan []byte, 4)
	require.NoError(t, mgr.AddSubscription(SubscriptionConfig{
		TrackName:    "video/hd",
		DataCallback: func(d []byte) { received <- d },
	}))
	require.NoError(t, mgr.Start(context.Background()))
	defer mgr.Stop()

	server := <-serverCh
	bp := moq.NewBroadcastProducer()
	catalogTrack, err := bp.CreateTrack(moq.Track{Name: "catalog.json"})
	require.NoError(t, err)
	videoTrack, err := bp.CreateTrack(moq.Track{Name: "video/hd"})
	require.NoError(t, err)
	audioTrack, err := bp.CreateTrack(moq.Track{Name: "audio/data"})
	require.NoError(t, err)
	require.NoError(t, server.Publish("room1", bp.Consumable()))

	time.Sleep(150 * time.Millisecond)

	hangCatalog := []byte(`{
		"video": {"priority": 5, "renditions": {"video/hd": {"bitrate": 2000000, "codec": "avc1"}}},
		"audio": {"renditions": {"audio/data": {"codec": "opus"}}}
	}`)
	cg, err := catalogTrack.CreateGroup(0)
	require.NoError(t, err)
	require.NoError(t, cg.WriteFrame(hangCatalog))
	require.NoError(t, cg.Close())

	time.Sleep(150 * time.Millisecond)

	vg, err := videoTrack.CreateGroup(0)
	require.NoError(t, err)
	require.NoError(t, vg.WriteFrame([]byte("V1")))
	require.NoError(t, vg.Close())

	ag, err := audioTrack.CreateGroup(0)
	require.NoError(t, err)
	require.NoError(t, ag.WriteFrame([]byte("A1")))
	require.NoError(t, ag.Close())

	select {
	case data := <-received:
		assert.Equal(t, []byte("V1"), data)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for video/hd frame")
	}

	mgr.mu.Lock()
	_, audioStarted := mgr.activeSubs["audio/data"]
	mgr.mu.Unlock()
	assert.False(t, audioStarted, "audio/data is available but not requested, so no worker should start")
}

func TestManagerPublishesBroadcast(t *testing.T) {
	clientConn, serverConn := moqtest.NewPair()

	serverCh := make(chan *moq.Session, 1)
	go func() {
		sess, err := moq.Accept(context.Background(), serverConn, moq.ModeBoth, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		serverCh <- sess
	}()

	mgr, err := New(Config{
		ServerURL: "moqt://relay",
		Namespace: "cam1",
		Mode:      moq.ModePublishOnly,
		DialQUIC:  dialerFor(clientConn),
	})
	require.NoError(t, err)
	require.NoError(t, mgr.AddBroadcast(BroadcastConfig{TrackName: "video/hd", Priority: 10}))
	require.NoError(t, mgr.Start(context.Background()))
	defer mgr.Stop()

	server := <-serverCh
	time.Sleep(150 * time.Millisecond) // let the manager's connect goroutine finish publishing "cam1"

	consumer, err := server.Consume("cam1")
	require.NoError(t, err)
	tc, err := consumer.SubscribeTrack(moq.Track{Name: "video/hd"})
	require.NoError(t, err)

	worker, ok := mgr.Broadcast("video/hd")
	require.True(t, ok)

	time.Sleep(100 * time.Millisecond) // let the subscribe control message reach the manager
	require.NoError(t, worker.WriteObject([]byte("hello")))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	group, err := tc.NextGroup(ctx)
	require.NoError(t, err)
	frame, err := group.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), frame)
}
