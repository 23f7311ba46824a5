package manager

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/stinkydev/moqgo/moq"
)

// workerRetryInterval is the fixed backoff a subscription worker waits
// after a transient subscribe failure before trying again.
const workerRetryInterval = 4 * time.Second

// subscriptionWorker owns one catalog-gated subscription: it holds the
// track consumer, pumps every frame of every group to the configured data
// callback, and retries subscribe on transient failure until stopped.
type subscriptionWorker struct {
	trackName moq.TrackName
	cfg       SubscriptionConfig
	broadcast *moq.BroadcastConsumer
	mgr       *Session

	stopCh chan struct{}
	doneCh chan struct{}
}

func newSubscriptionWorker(mgr *Session, broadcast *moq.BroadcastConsumer, cfg SubscriptionConfig) *subscriptionWorker {
	return &subscriptionWorker{
		trackName: cfg.TrackName,
		cfg:       cfg,
		broadcast: broadcast,
		mgr:       mgr,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func (w *subscriptionWorker) start() {
	go w.run()
}

// stop signals the worker to exit and returns without waiting for it: a
// DataCallback running on this worker's own goroutine may itself call
// Session.Stop, which reaches here, and a blocking join would deadlock the
// worker against itself. doneCh is closed on actual exit for callers,
// outside the worker's own callback, that need to observe it.
func (w *subscriptionWorker) stop() {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
}

func (w *subscriptionWorker) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		tc, err := w.broadcast.SubscribeTrack(moq.Track{Name: w.trackName})
		if err != nil {
			w.mgr.notifyStatus("subscribe %s failed, retrying: %v", w.trackName, err)
			if w.cfg.ReconnectCallback != nil {
				w.cfg.ReconnectCallback()
			}
			if !w.sleepOrStop(workerRetryInterval) {
				return
			}
			continue
		}

		if !w.pump(tc) {
			tc.Close()
			return
		}
		tc.Close()

		// Track ended (session closed or terminated); retry at the same
		// fixed interval rather than spinning.
		if !w.sleepOrStop(workerRetryInterval) {
			return
		}
	}
}

// pump reads every group and frame until the subscription ends or stop is
// requested. Returns false if the worker should exit entirely.
func (w *subscriptionWorker) pump(tc *moq.TrackConsumer) bool {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		group, err := tc.NextGroup(ctx)
		if err != nil {
			select {
			case <-w.stopCh:
				return false
			default:
			}
			return !errors.Is(err, context.Canceled)
		}

		for {
			frame, err := group.ReadFrame()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					w.mgr.notifyStatus("frame read error on %s: %v", w.trackName, err)
					if errors.Is(err, moq.ErrGroupAborted) && w.mgr.cfg.Metrics != nil {
						w.mgr.cfg.Metrics.GroupAborted()
					}
				}
				break
			}
			if w.mgr.cfg.Metrics != nil {
				w.mgr.cfg.Metrics.FrameReceived()
			}
			w.cfg.DataCallback(frame)
		}
	}
}

func (w *subscriptionWorker) sleepOrStop(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-w.stopCh:
		return false
	}
}
