// Package scheduler decides when the outbox is drained: once at
// startup if the network is reachable, and on every transition back to
// online. It guarantees at most one drain runs at a time.
package scheduler

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/tkmserwis/inspektor/internal/errors"
	"github.com/tkmserwis/inspektor/internal/logging"
	"github.com/tkmserwis/inspektor/internal/outbox"
)

// Drainer is the outbox operation the scheduler invokes.
type Drainer interface {
	Drain(ctx context.Context) (*outbox.DrainResult, error)
}

// Reachability reports network state. Implementations must invoke
// Notify callbacks on every offline-to-online transition.
type Reachability interface {
	Online() bool
	Notify(fn func())
}

// Scheduler triggers drains without ever overlapping them. A trigger
// that lands while a drain is in flight sets a single rerun slot, so
// any burst of triggers collapses into at most one follow-up drain.
type Scheduler struct {
	drainer Drainer
	reach   Reachability

	mu              sync.Mutex
	isRunning       bool
	drainInProgress bool
	rerunPending    bool
	lastDrainTime   time.Time
	lastResult      *outbox.DrainResult
	ctx             context.Context

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Scheduler.
func New(drainer Drainer, reach Reachability) *Scheduler {
	return &Scheduler{
		drainer: drainer,
		reach:   reach,
		stopCh:  make(chan struct{}),
	}
}

// Start registers for online transitions and, if the network is
// already reachable, triggers the startup drain. All drains run on
// ctx, which must outlive the scheduler: triggers arrive from
// short-lived callers (an HTTP handler, a reachability callback) whose
// own contexts end long before the drain does. A stopped scheduler may
// be started again.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ctx = ctx
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.reach.Notify(func() {
		logging.Info("Connectivity restored, draining email queue", nil)
		s.TriggerDrain()
	})

	if s.reach.Online() {
		logging.Info("Online at startup, draining email queue", nil)
		s.TriggerDrain()
	}

	logging.Info("Outbox scheduler started", nil)
}

// Stop prevents new drains and waits for an in-flight one to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	stopCh := s.stopCh
	s.mu.Unlock()

	close(stopCh)
	s.wg.Wait()

	logging.Info("Outbox scheduler stopped", nil)
}

// TriggerDrain requests a drain. It returns true if a drain was
// started now; false if the scheduler is stopped or a drain is already
// in flight (in which case one rerun is queued). Safe to call
// redundantly, e.g. from a manual "retry now" action. The drain runs
// on the Start context, never the caller's.
func (s *Scheduler) TriggerDrain() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return false
	}
	if s.drainInProgress {
		s.rerunPending = true
		return false
	}

	s.drainInProgress = true
	s.wg.Add(1)
	go s.runDrain(s.ctx)
	return true
}

func (s *Scheduler) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// runDrain executes drains until no rerun request remains. The
// in-flight flag is held for the whole sequence, so a rerun never
// overlaps the drain that queued it.
func (s *Scheduler) runDrain(ctx context.Context) {
	defer s.wg.Done()

	for {
		result, err := s.drainer.Drain(ctx)
		if err != nil {
			logging.ErrorWithCode("Queue drain could not read pending emails",
				string(apperrors.CodeOf(err)), err)
		}

		s.mu.Lock()
		s.lastDrainTime = time.Now()
		if err == nil {
			s.lastResult = result
		}

		if s.rerunPending && !s.stopped() {
			s.rerunPending = false
			s.mu.Unlock()
			continue
		}

		s.drainInProgress = false
		s.mu.Unlock()
		return
	}
}

// Status is a snapshot of the scheduler state for the admin surface.
type Status struct {
	IsRunning       bool
	Online          bool
	DrainInProgress bool
	LastDrainTime   *time.Time
	LastResult      *outbox.DrainResult
}

// GetStatus returns the current scheduler status.
func (s *Scheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		IsRunning:       s.isRunning,
		Online:          s.reach.Online(),
		DrainInProgress: s.drainInProgress,
		LastResult:      s.lastResult,
	}
	if !s.lastDrainTime.IsZero() {
		t := s.lastDrainTime
		status.LastDrainTime = &t
	}
	return status
}
