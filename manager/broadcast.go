package manager

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/stinkydev/moqgo/moq"
)

// broadcastWorker owns one published track's group sequencing: StartGroup,
// WriteFrame, and FinishGroup mirror the original manager's producer, plus
// WriteObject for the common case of a single-frame group. The starting
// sequence is randomized, matching the original's rand::random::<u64> %
// 1_000_000 seed so restarts don't collide with a prior run's sequence
// space.
type broadcastWorker struct {
	track moq.TrackName

	mu           sync.Mutex
	trackHandle  *moq.TrackProducer
	currentGroup *moq.GroupProducer
	nextSeq      moq.GroupSequence
}

func newBroadcastWorker(tp *moq.TrackProducer) *broadcastWorker {
	return &broadcastWorker{
		track:       tp.Name(),
		trackHandle: tp,
		nextSeq:     moq.GroupSequence(rand.Uint64() % 1_000_000),
	}
}

// StartGroup finishes whatever group is in progress and starts a new one.
func (w *broadcastWorker) StartGroup() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	seq := w.nextSeq
	w.nextSeq++

	g, err := w.trackHandle.CreateGroup(seq)
	if err != nil {
		return fmt.Errorf("manager: start group for %s: %w", w.track, err)
	}
	w.currentGroup = g
	return nil
}

// WriteFrame writes payload to the group currently in progress.
func (w *broadcastWorker) WriteFrame(payload []byte) error {
	w.mu.Lock()
	g := w.currentGroup
	w.mu.Unlock()

	if g == nil {
		return fmt.Errorf("manager: %s: group not started", w.track)
	}
	return g.WriteFrame(payload)
}

// FinishGroup ends the group currently in progress, if any.
func (w *broadcastWorker) FinishGroup() error {
	w.mu.Lock()
	g := w.currentGroup
	w.currentGroup = nil
	w.mu.Unlock()

	if g == nil {
		return nil
	}
	return g.Close()
}

// WriteObject is the common case of a single-frame group: start, write,
// finish in one call.
func (w *broadcastWorker) WriteObject(payload []byte) error {
	if err := w.StartGroup(); err != nil {
		return err
	}
	if err := w.WriteFrame(payload); err != nil {
		return err
	}
	return w.FinishGroup()
}
