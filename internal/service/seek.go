package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuedeck/cuedeck/internal/domain"
)

// seekOperation is one in-flight forced seek. It carries an identity so a
// scheduled check can tell whether it is still the relevant operation: a
// newer seek or a track change supersedes it, and the stale operation's
// checks become no-ops by identity comparison, never by callback order.
type seekOperation struct {
	id     uuid.UUID
	target float64 // seconds

	mu       sync.Mutex
	timers   []*time.Timer
	listener domain.SubscriptionID // one-shot canplay listener, "" if none
}

func newSeekOperation(target float64) *seekOperation {
	return &seekOperation{
		id:     uuid.New(),
		target: target,
	}
}

// schedule arms the correction checks. The last delay carries final=true: that
// check deactivates the operation and clears the store's pending seek
// regardless of outcome.
func (op *seekOperation) schedule(delays []time.Duration, check func(op *seekOperation, final bool)) {
	op.mu.Lock()
	defer op.mu.Unlock()

	for i, delay := range delays {
		final := i == len(delays)-1
		op.timers = append(op.timers, time.AfterFunc(delay, func() {
			check(op, final)
		}))
	}
}

// cancel stops any pending correction checks. Checks already running are
// defeated by the identity comparison instead.
func (op *seekOperation) cancel() {
	op.mu.Lock()
	defer op.mu.Unlock()

	for _, t := range op.timers {
		t.Stop()
	}
	op.timers = nil
}

func (op *seekOperation) setListener(id domain.SubscriptionID) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.listener = id
}

func (op *seekOperation) takeListener() domain.SubscriptionID {
	op.mu.Lock()
	defer op.mu.Unlock()
	id := op.listener
	op.listener = ""
	return id
}
