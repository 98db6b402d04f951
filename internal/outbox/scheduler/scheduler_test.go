// Package scheduler provides unit tests for drain triggering and the
// no-overlap guarantee.
package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tkmserwis/inspektor/internal/outbox"
)

// fakeDrainer counts drain invocations and can block them to simulate
// a slow remote send.
type fakeDrainer struct {
	mu         sync.Mutex
	running    int
	maxRunning int
	count      int
	lastCtxErr error
	block      chan struct{} // when non-nil, drains wait here
}

func (d *fakeDrainer) Drain(ctx context.Context) (*outbox.DrainResult, error) {
	d.mu.Lock()
	d.running++
	if d.running > d.maxRunning {
		d.maxRunning = d.running
	}
	d.count++
	block := d.block
	d.mu.Unlock()

	if block != nil {
		<-block
	}

	d.mu.Lock()
	d.lastCtxErr = ctx.Err()
	d.running--
	d.mu.Unlock()
	return &outbox.DrainResult{}, nil
}

func (d *fakeDrainer) lastContextErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastCtxErr
}

func (d *fakeDrainer) drainCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

func (d *fakeDrainer) maxConcurrent() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxRunning
}

// fakeReach is a scriptable reachability source.
type fakeReach struct {
	mu       sync.Mutex
	online   bool
	callback func()
}

func (r *fakeReach) Online() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online
}

func (r *fakeReach) Notify(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callback = fn
}

func (r *fakeReach) goOnline() {
	r.mu.Lock()
	r.online = true
	cb := r.callback
	r.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartDrainsWhenOnline(t *testing.T) {
	drainer := &fakeDrainer{}
	sched := New(drainer, &fakeReach{online: true})

	sched.Start(context.Background())
	defer sched.Stop()

	waitFor(t, "startup drain", func() bool { return drainer.drainCount() == 1 })
}

func TestStartSkipsDrainWhenOffline(t *testing.T) {
	drainer := &fakeDrainer{}
	sched := New(drainer, &fakeReach{online: false})

	sched.Start(context.Background())
	defer sched.Stop()

	time.Sleep(50 * time.Millisecond)
	if drainer.drainCount() != 0 {
		t.Errorf("drained %d times while offline", drainer.drainCount())
	}
}

func TestOnlineTransitionTriggersDrain(t *testing.T) {
	drainer := &fakeDrainer{}
	reach := &fakeReach{online: false}
	sched := New(drainer, reach)

	sched.Start(context.Background())
	defer sched.Stop()

	reach.goOnline()
	waitFor(t, "transition drain", func() bool { return drainer.drainCount() == 1 })
}

// Triggers landing while a drain is in flight collapse into at most
// one follow-up drain, and drains never overlap.
func TestNoOverlappingDrains(t *testing.T) {
	block := make(chan struct{})
	drainer := &fakeDrainer{block: block}
	sched := New(drainer, &fakeReach{online: false})

	sched.Start(context.Background())
	defer sched.Stop()

	if !sched.TriggerDrain() {
		t.Fatal("first trigger should start a drain")
	}
	waitFor(t, "drain to start", func() bool { return drainer.drainCount() == 1 })

	// A burst of redundant triggers mid-drain.
	for i := 0; i < 4; i++ {
		if sched.TriggerDrain() {
			t.Error("trigger mid-drain must not start a concurrent drain")
		}
	}

	close(block)
	waitFor(t, "rerun drain", func() bool { return drainer.drainCount() == 2 })

	// Let any stray goroutine run before checking nothing else fired.
	time.Sleep(50 * time.Millisecond)
	if got := drainer.drainCount(); got != 2 {
		t.Errorf("drain count = %d, want exactly 2", got)
	}
	if drainer.maxConcurrent() != 1 {
		t.Errorf("max concurrent drains = %d, want 1", drainer.maxConcurrent())
	}
	waitFor(t, "in-flight flag clear", func() bool { return !sched.GetStatus().DrainInProgress })
}

func TestTriggerAfterStopIsRefused(t *testing.T) {
	drainer := &fakeDrainer{}
	sched := New(drainer, &fakeReach{online: false})

	sched.Start(context.Background())
	sched.Stop()

	if sched.TriggerDrain() {
		t.Error("trigger after Stop should be refused")
	}
}

func TestStopWaitsForInFlightDrain(t *testing.T) {
	block := make(chan struct{})
	drainer := &fakeDrainer{block: block}
	sched := New(drainer, &fakeReach{online: false})

	sched.Start(context.Background())
	sched.TriggerDrain()
	waitFor(t, "drain to start", func() bool { return drainer.drainCount() == 1 })

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Stop returned while a drain was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the drain finished")
	}
}

// A drain must run on the context given to Start, not the trigger
// caller's: manual triggers come from HTTP handlers whose request
// context dies as soon as the handler returns.
func TestDrainRunsOnStartContext(t *testing.T) {
	drainer := &fakeDrainer{}
	sched := New(drainer, &fakeReach{online: false})

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	defer sched.Stop()

	if !sched.TriggerDrain() {
		t.Fatal("trigger should start a drain")
	}
	waitFor(t, "drain to run", func() bool { return drainer.drainCount() == 1 })
	waitFor(t, "in-flight flag clear", func() bool { return !sched.GetStatus().DrainInProgress })
	if err := drainer.lastContextErr(); err != nil {
		t.Errorf("drain saw a dead context: %v", err)
	}

	cancel()
	if !sched.TriggerDrain() {
		t.Fatal("trigger should still start a drain")
	}
	waitFor(t, "second drain to run", func() bool { return drainer.drainCount() == 2 })
	if err := drainer.lastContextErr(); err == nil {
		t.Error("cancelling the Start context should reach the drain")
	}
}

func TestRestartAfterStop(t *testing.T) {
	drainer := &fakeDrainer{}
	sched := New(drainer, &fakeReach{online: false})

	sched.Start(context.Background())
	sched.Stop()

	sched.Start(context.Background())
	defer sched.Stop()

	if !sched.TriggerDrain() {
		t.Error("trigger after restart should start a drain")
	}
	waitFor(t, "drain after restart", func() bool { return drainer.drainCount() == 1 })
}

func TestGetStatus(t *testing.T) {
	drainer := &fakeDrainer{}
	reach := &fakeReach{online: true}
	sched := New(drainer, reach)

	status := sched.GetStatus()
	if status.IsRunning {
		t.Error("scheduler should not report running before Start")
	}

	sched.Start(context.Background())
	defer sched.Stop()
	waitFor(t, "startup drain", func() bool { return drainer.drainCount() == 1 })
	waitFor(t, "drain to finish", func() bool { return !sched.GetStatus().DrainInProgress })

	status = sched.GetStatus()
	if !status.IsRunning || !status.Online {
		t.Errorf("status = %+v", status)
	}
	if status.LastDrainTime == nil || status.LastResult == nil {
		t.Errorf("drain bookkeeping missing: %+v", status)
	}
}
