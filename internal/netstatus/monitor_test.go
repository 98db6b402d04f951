// Package netstatus provides unit tests for the reachability monitor.
package netstatus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

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

func TestStartDetectsOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	monitor := New(server.URL, 10*time.Millisecond)
	monitor.Start(context.Background())
	defer monitor.Stop()

	if !monitor.Online() {
		t.Error("monitor should be online after startup probe")
	}
}

func TestStartDetectsOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening

	monitor := New(server.URL, 10*time.Millisecond)
	monitor.Start(context.Background())
	defer monitor.Stop()

	if monitor.Online() {
		t.Error("monitor should be offline when the probe is unreachable")
	}
}

// An error status still means the network is reachable.
func TestErrorStatusCountsAsOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	monitor := New(server.URL, 10*time.Millisecond)
	monitor.Start(context.Background())
	defer monitor.Stop()

	if !monitor.Online() {
		t.Error("a responding probe means reachable, whatever the status")
	}
}

func TestCallbackFiresOnTransitionToOnline(t *testing.T) {
	var reachable atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !reachable.Load() {
			// Simulate no connectivity by hijacking and dropping.
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
	}))
	defer server.Close()

	monitor := New(server.URL, 10*time.Millisecond)

	var transitions atomic.Int32
	monitor.Notify(func() { transitions.Add(1) })

	monitor.Start(context.Background())
	defer monitor.Stop()

	if monitor.Online() {
		t.Fatal("monitor should start offline")
	}

	reachable.Store(true)
	waitFor(t, "transition callback", func() bool { return transitions.Load() == 1 })

	// Staying online must not fire again.
	time.Sleep(50 * time.Millisecond)
	if transitions.Load() != 1 {
		t.Errorf("callback fired %d times for one transition", transitions.Load())
	}
}

func TestStopHaltsProbing(t *testing.T) {
	var probes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
	}))
	defer server.Close()

	monitor := New(server.URL, 10*time.Millisecond)
	monitor.Start(context.Background())
	monitor.Stop()

	seen := probes.Load()
	time.Sleep(50 * time.Millisecond)
	if probes.Load() != seen {
		t.Error("monitor kept probing after Stop")
	}
}
