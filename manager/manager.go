// Package manager is the supervisor layer above a moq.Session: it drives a
// single connect attempt (with optional reconnection, capped by
// Config.ReconnectMaxAttempts when that is positive and not capped when it
// is 0),
// catalog-gated subscription workers, and broadcast publish workers, so a
// caller can declare "these are the tracks I want" and "these are the
// tracks I publish" without hand-driving the session lifecycle itself.
package manager

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stinkydev/moqgo/catalog"
	"github.com/stinkydev/moqgo/internal/metrics"
	"github.com/stinkydev/moqgo/moq"
	"github.com/stinkydev/moqgo/quic"
)

// Result-code style errors, mirroring the conceptual C manager surface
// (Success/InvalidParameter/NotConnected/AlreadyConnected/Internal) as a Go
// error taxonomy instead of integer constants.
var (
	ErrInvalidParameter = fmt.Errorf("manager: invalid parameter")
	ErrNotConnected     = fmt.Errorf("manager: not connected")
	ErrAlreadyConnected = fmt.Errorf("manager: already connected")
	ErrInternal         = fmt.Errorf("manager: internal error")
)

// CatalogHint skips format sniffing when the publisher's catalog format is
// known ahead of time.
type CatalogHint int

const (
	CatalogAuto CatalogHint = iota
	CatalogStandard
	CatalogHang
)

// SubscriptionConfig requests one track by name, delivering every frame of
// every group to DataCallback as it arrives. ReconnectCallback, if set, is
// invoked when the worker serving this subscription needs the owning
// session re-established after a transient failure — supplemental to the
// data path, not a replacement for it.
type SubscriptionConfig struct {
	TrackName        moq.TrackName
	DataCallback     func(data []byte)
	ReconnectCallback func()
}

// BroadcastConfig declares one track this manager publishes under its
// configured namespace.
type BroadcastConfig struct {
	TrackName moq.TrackName
	Priority  moq.TrackPriority
}

// Config is the supervisor's static configuration, fixed for the session's
// lifetime.
type Config struct {
	ServerURL string
	Namespace moq.BroadcastPath
	Mode      moq.SessionMode

	TLSConfig *tls.Config
	Logger    *slog.Logger
	Metrics   *metrics.Metrics

	// DialQUIC overrides the transport dial, bypassing moq.Client's scheme
	// selection entirely. Tests substitute an in-memory connection here;
	// production callers normally leave it nil.
	DialQUIC quic.DialAddrFunc

	// ReconnectOnFailure opts into automatic reconnection; see spec's
	// bounded-retry policy. Disabled by default.
	ReconnectOnFailure   bool
	ReconnectMinInterval time.Duration
	ReconnectMaxAttempts int // 0 = unbounded, subject to ReconnectOnFailure

	CatalogHint CatalogHint

	// BroadcastRetryInterval bounds how often the subscribing modes
	// (ModeSubscribeOnly, ModeBoth) retry waiting for the target broadcast to
	// be announced.
	BroadcastRetryInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReconnectMinInterval <= 0 {
		c.ReconnectMinInterval = 3 * time.Second
	}
	if c.BroadcastRetryInterval <= 0 {
		c.BroadcastRetryInterval = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Session is the manager's supervisor: it owns a moq.Client dial, a
// catalog-gated set of subscription workers, and a set of broadcast
// publish workers, and restarts all of it on reconnect.
type Session struct {
	cfg Config

	client *moq.Client

	mu               sync.Mutex
	session          *moq.Session
	sessionClosedCh  chan struct{}
	connected        bool
	lastErr          error
	connectAttempts  int
	lastConnectedAt  time.Time

	requested map[moq.TrackName]SubscriptionConfig
	broadcasts []BroadcastConfig

	activeSubs   map[moq.TrackName]*subscriptionWorker
	activePubs   []*broadcastWorker
	catalogWorker *catalogConsumer

	errorCallback  func(string)
	statusCallback func(string)

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a manager session; nothing connects until Start is called.
func New(cfg Config) (*Session, error) {
	if cfg.ServerURL == "" || cfg.Namespace == "" {
		return nil, ErrInvalidParameter
	}
	cfg = cfg.withDefaults()

	return &Session{
		cfg:        cfg,
		client:     &moq.Client{TLSConfig: cfg.TLSConfig, Logger: cfg.Logger, DialQUIC: cfg.DialQUIC},
		requested:  make(map[moq.TrackName]SubscriptionConfig),
		activeSubs: make(map[moq.TrackName]*subscriptionWorker),
	}, nil
}

// SetErrorCallback registers the callback fired on non-fatal errors
// encountered by the manager or its workers. May be re-entered from any
// worker goroutine.
func (s *Session) SetErrorCallback(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCallback = fn
}

// SetStatusCallback registers the callback fired on lifecycle status
// changes (connecting, connected, reconnecting, stopped).
func (s *Session) SetStatusCallback(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCallback = fn
}

func (s *Session) notifyError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.cfg.Logger.Error(msg)
	s.mu.Lock()
	cb := s.errorCallback
	s.mu.Unlock()
	if cb != nil {
		cb(msg)
	}
}

func (s *Session) notifyStatus(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.cfg.Logger.Info(msg)
	s.mu.Lock()
	cb := s.statusCallback
	s.mu.Unlock()
	if cb != nil {
		cb(msg)
	}
}

// AddSubscription requests a track be consumed once the catalog advertises
// it. Safe to call before or after Start; a running catalog worker picks up
// additions on its next reconciliation pass.
func (s *Session) AddSubscription(cfg SubscriptionConfig) error {
	if cfg.TrackName == "" || cfg.DataCallback == nil {
		return ErrInvalidParameter
	}
	s.mu.Lock()
	s.requested[cfg.TrackName] = cfg
	s.mu.Unlock()
	return nil
}

// AddBroadcast declares a track this manager publishes. Only effective
// before Start in the current design; publish workers are created once at
// connect time.
func (s *Session) AddBroadcast(cfg BroadcastConfig) error {
	if cfg.TrackName == "" {
		return ErrInvalidParameter
	}
	s.mu.Lock()
	s.broadcasts = append(s.broadcasts, cfg)
	s.mu.Unlock()
	return nil
}

// IsRunning reports whether the manager currently holds a connected
// session.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// LastError returns the most recent error observed by the manager, or nil.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Start launches the connect attempt on a background goroutine and returns
// immediately, mirroring the original manager's pattern of spawning start()
// on its async runtime rather than blocking the caller on it — connecting,
// waiting for the broadcast to be announced, and standing up the catalog
// consumer can all take longer than a caller thread should block for.
// Failures surface through the error callback and LastError, not through
// Start's return value; only the synchronous already-running precondition
// returns an error directly (config is validated earlier, by New).
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	go func() {
		if err := s.connect(ctx); err != nil {
			s.recordError(err)
			s.notifyError("connect failed: %v", err)
			if s.cfg.ReconnectOnFailure {
				go s.reconnectLoop(ctx)
			}
			return
		}
		if s.cfg.ReconnectOnFailure {
			go s.monitorConnection(ctx)
		}
	}()
	return nil
}

func (s *Session) recordError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Session) connect(ctx context.Context) error {
	s.mu.Lock()
	s.connectAttempts++
	attempt := s.connectAttempts
	s.mu.Unlock()

	s.notifyStatus("connecting to %s (attempt %d)", s.cfg.ServerURL, attempt)
	if s.cfg.Metrics != nil && attempt > 1 {
		s.cfg.Metrics.ReconnectAttempted()
	}

	sess, err := s.client.Dial(ctx, s.cfg.ServerURL, s.cfg.Mode)
	if err != nil {
		return fmt.Errorf("manager: connect: %w", err)
	}

	closedCh := make(chan struct{})
	sess.SetOnConnectionClosed(func(closeErr error) {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
		s.notifyStatus("connection lost: %v", closeErr)
		close(closedCh)
	})

	connectedAt := time.Now()
	s.mu.Lock()
	s.session = sess
	s.sessionClosedCh = closedCh
	s.connected = true
	s.lastConnectedAt = connectedAt
	s.mu.Unlock()

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SessionConnected()
	}
	s.notifyStatus("connected to %s at %s", s.cfg.ServerURL, connectedAt.Format(time.RFC3339))

	if s.cfg.Mode.String() == "publish-only" || s.cfg.Mode.String() == "both" {
		if err := s.startBroadcasts(sess); err != nil {
			return err
		}
	}
	if s.cfg.Mode.String() == "subscribe-only" || s.cfg.Mode.String() == "both" {
		if err := s.startConsuming(ctx, sess); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) startBroadcasts(sess *moq.Session) error {
	s.mu.Lock()
	configs := append([]BroadcastConfig(nil), s.broadcasts...)
	s.mu.Unlock()

	producer := moq.NewBroadcastProducer()
	workers := make([]*broadcastWorker, 0, len(configs))
	for _, bc := range configs {
		tp, err := producer.CreateTrack(moq.Track{Name: bc.TrackName, Priority: bc.Priority})
		if err != nil {
			return fmt.Errorf("manager: create track %s: %w", bc.TrackName, err)
		}
		workers = append(workers, newBroadcastWorker(tp))
	}
	if err := sess.Publish(s.cfg.Namespace, producer.Consumable()); err != nil {
		return fmt.Errorf("manager: publish %s: %w", s.cfg.Namespace, err)
	}

	s.mu.Lock()
	s.activePubs = workers
	s.mu.Unlock()
	return nil
}

// Broadcast returns the publish worker for name, if this manager is
// currently publishing it.
func (s *Session) Broadcast(name moq.TrackName) (*broadcastWorker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.activePubs {
		if w.track == name {
			return w, true
		}
	}
	return nil, false
}

func (s *Session) startConsuming(ctx context.Context, sess *moq.Session) error {
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	consumer, err := s.waitForBroadcast(waitCtx, sess)
	if err != nil {
		return err
	}

	cw := newCatalogConsumer(s, consumer)
	s.mu.Lock()
	s.catalogWorker = cw
	s.mu.Unlock()

	go cw.run(ctx)
	return nil
}

// waitForBroadcast blocks on the session's announce feed until the
// configured namespace is observed active, logging a status update on
// every unrelated or stale announcement while it waits, until ctx is done.
func (s *Session) waitForBroadcast(ctx context.Context, sess *moq.Session) (*moq.BroadcastConsumer, error) {
	origin := sess.OriginConsumer()
	attempt := 0
	for {
		waitCtx, cancel := context.WithTimeout(ctx, s.cfg.BroadcastRetryInterval)
		ann, ok := origin.Announced(waitCtx)
		cancel()

		if ok {
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.AnnounceEvent(ann.Active)
			}
			if ann.Path == s.cfg.Namespace && ann.Active {
				return sess.Consume(s.cfg.Namespace)
			}
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("manager: waiting for broadcast %q: %w", s.cfg.Namespace, ctx.Err())
		}

		attempt++
		s.notifyStatus("broadcast %q not yet available, retrying (attempt %d)", s.cfg.Namespace, attempt)
	}
}

func (s *Session) reconnectLoop(ctx context.Context) {
	attempts := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.ReconnectMinInterval):
		}

		if s.cfg.ReconnectMaxAttempts > 0 && attempts >= s.cfg.ReconnectMaxAttempts {
			s.notifyError("reconnect: exceeded max attempts (%d)", s.cfg.ReconnectMaxAttempts)
			return
		}
		attempts++

		if err := s.connect(ctx); err != nil {
			s.recordError(err)
			s.notifyError("reconnect attempt %d failed: %v", attempts, err)
			continue
		}
		s.notifyStatus("reconnected after %d attempt(s)", attempts)
		go s.monitorConnection(ctx)
		return
	}
}

// monitorConnection watches the live session for loss and, if configured,
// tears down workers and re-enters the reconnect loop.
func (s *Session) monitorConnection(ctx context.Context) {
	s.mu.Lock()
	closed := s.sessionClosedCh
	s.mu.Unlock()
	if closed == nil {
		return
	}

	select {
	case <-closed:
	case <-s.stopCh:
		return
	case <-ctx.Done():
		return
	}

	s.notifyStatus("connection lost, tearing down workers")
	s.stopWorkers()

	select {
	case <-s.stopCh:
		return
	default:
	}

	go s.reconnectLoop(ctx)
}

func (s *Session) stopWorkers() {
	s.mu.Lock()
	subs := s.activeSubs
	s.activeSubs = make(map[moq.TrackName]*subscriptionWorker)
	cw := s.catalogWorker
	s.catalogWorker = nil
	s.mu.Unlock()

	for _, w := range subs {
		w.stop()
	}
	if cw != nil {
		cw.stop()
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SetActiveWorkers(0)
	}
}

// Stop tears down all workers and closes the underlying session. It does
// not join the background goroutines it signals — matching the original
// manager, whose stop() sends a shutdown signal and drops its worker
// handles without awaiting them. This is deliberate: status and error
// callbacks may themselves call Stop from a goroutine Stop would otherwise
// need to join (the connect goroutine, the catalog consumer, a
// subscription worker), and joining from inside one of them would
// deadlock. Stop is safe to call from any callback for exactly this
// reason; callers that need to know teardown has fully settled should wait
// on their own signal (e.g. the status callback observing "stopped").
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		stopCh := s.stopCh
		s.mu.Unlock()
		if stopCh != nil {
			close(stopCh)
		}
	})

	s.stopWorkers()

	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.connected = false
	s.mu.Unlock()

	if sess != nil {
		sess.Close()
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.SessionClosed()
		}
	}

	s.notifyStatus("stopped")
}

// snapshotAvailable reads the last catalog snapshot's advertised tracks, or
// an empty snapshot when no catalog consumer is running.
func (s *Session) snapshotAvailable() catalog.Snapshot {
	s.mu.Lock()
	cw := s.catalogWorker
	s.mu.Unlock()
	if cw == nil {
		return catalog.Snapshot{}
	}
	return cw.snapshot()
}
