package manager

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/stinkydev/moqgo/catalog"
	"github.com/stinkydev/moqgo/moq"
)

// catalogTrackNames are tried in order when subscribing to a broadcast's
// catalog; the first to subscribe successfully wins. SubscribeTrack succeeds
// whether or not the publisher has the track, so while the session is
// connected "catalog.json" is always the name consumed; a catalog published
// only under "catalog" is not received.
var catalogTrackNames = []moq.TrackName{"catalog.json", "catalog"}

// catalogConsumer subscribes to a broadcast's catalog track and drives
// subscription reconciliation: on every catalog update, the manager's
// active subscription workers are recomputed to exactly
// requested ∩ available.
type catalogConsumer struct {
	mgr       *Session
	broadcast *moq.BroadcastConsumer

	mu        sync.RWMutex
	available catalog.Snapshot

	stopCh chan struct{}
	doneCh chan struct{}
}

func newCatalogConsumer(mgr *Session, broadcast *moq.BroadcastConsumer) *catalogConsumer {
	return &catalogConsumer{
		mgr:       mgr,
		broadcast: broadcast,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func (c *catalogConsumer) snapshot() catalog.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

// stop signals the catalog consumer to exit without waiting for it, for the
// same self-join reason as subscriptionWorker.stop: reconcile runs on this
// goroutine, so a blocking join here would deadlock a catalog-driven
// teardown against itself.
func (c *catalogConsumer) stop() {
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
}

func (c *catalogConsumer) run(ctx context.Context) {
	defer close(c.doneCh)

	var tc *moq.TrackConsumer
	var lastErr error
	for _, name := range catalogTrackNames {
		t, err := c.broadcast.SubscribeTrack(moq.Track{Name: name})
		if err == nil {
			tc = t
			break
		}
		lastErr = err
	}
	if tc == nil {
		c.mgr.notifyError("catalog: subscribe failed: %v", lastErr)
		return
	}
	defer tc.Close()

	c.mgr.notifyStatus("catalog consumer started")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.stopCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	for {
		group, err := tc.NextGroup(runCtx)
		if err != nil {
			return
		}

		for {
			frame, err := group.ReadFrame()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					c.mgr.notifyStatus("catalog frame read error: %v", err)
				}
				break
			}
			c.processCatalog(frame)
		}
	}
}

func (c *catalogConsumer) processCatalog(data []byte) {
	snap, err := c.parse(data)
	if err != nil {
		c.mgr.notifyError("catalog: %v", err)
		return
	}

	c.mu.Lock()
	c.available = snap
	c.mu.Unlock()

	if c.mgr.cfg.Metrics != nil {
		c.mgr.cfg.Metrics.CatalogUpdated()
	}

	c.reconcile(snap)
}

func (c *catalogConsumer) parse(data []byte) (catalog.Snapshot, error) {
	switch c.mgr.cfg.CatalogHint {
	case CatalogStandard:
		return catalog.ParseStandard(data)
	case CatalogHang:
		return catalog.ParseHang(data)
	default:
		return catalog.Parse(data)
	}
}

// reconcile computes the diff under the manager's lock, then starts/stops
// workers outside it: catalog and data callbacks must never be invoked
// while the manager lock is held, since a callback re-entering the manager
// (e.g. to call Stop) would otherwise deadlock against itself.
func (c *catalogConsumer) reconcile(available catalog.Snapshot) {
	mgr := c.mgr

	mgr.mu.Lock()
	toStart := make([]SubscriptionConfig, 0)
	toStop := make([]*subscriptionWorker, 0)

	for name, cfg := range mgr.requested {
		_, running := mgr.activeSubs[name]
		if available.Available(name) && !running {
			toStart = append(toStart, cfg)
		}
	}
	for name, w := range mgr.activeSubs {
		if !available.Available(name) {
			toStop = append(toStop, w)
			delete(mgr.activeSubs, name)
		}
	}
	broadcastConsumer := c.broadcast
	mgr.mu.Unlock()

	for _, w := range toStop {
		mgr.notifyStatus("stopping subscription %s (no longer in catalog)", w.trackName)
		w.stop()
	}

	for _, cfg := range toStart {
		mgr.notifyStatus("starting subscription %s", cfg.TrackName)
		w := newSubscriptionWorker(mgr, broadcastConsumer, cfg)
		mgr.mu.Lock()
		mgr.activeSubs[cfg.TrackName] = w
		count := len(mgr.activeSubs)
		mgr.mu.Unlock()
		w.start()
		if mgr.cfg.Metrics != nil {
			mgr.cfg.Metrics.SetActiveWorkers(count)
		}
	}
}
