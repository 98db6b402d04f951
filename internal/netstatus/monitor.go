// Package netstatus reports network reachability for the field device.
// Connectivity is probed against a health URL; callbacks fire on every
// transition from offline to online.
package netstatus

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tkmserwis/inspektor/internal/logging"
)

// Monitor polls a probe URL on an interval and tracks online state.
// Any HTTP response counts as reachable, even an error status: the
// probe measures connectivity, not the probe target's health.
type Monitor struct {
	probeURL   string
	interval   time.Duration
	httpClient *http.Client

	mu        sync.Mutex
	isRunning bool
	online    bool
	callbacks []func()

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Monitor probing probeURL every interval.
func New(probeURL string, interval time.Duration) *Monitor {
	timeout := 5 * time.Second
	if interval < timeout {
		timeout = interval
	}
	return &Monitor{
		probeURL: probeURL,
		interval: interval,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		stopCh: make(chan struct{}),
	}
}

// Online returns the last observed reachability state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Notify registers a callback fired on every offline-to-online
// transition. Callbacks run on the monitor goroutine.
func (m *Monitor) Notify(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Start probes once synchronously, so callers see a meaningful Online()
// immediately, then keeps probing in the background.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = true
	m.mu.Unlock()

	m.update(m.probe(ctx))

	m.wg.Add(1)
	go m.loop(ctx)
}

// Stop halts background probing.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.update(m.probe(ctx))
		}
	}
}

// probe checks reachability with a single HEAD request.
func (m *Monitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// update records the new state and fires callbacks on the
// offline-to-online edge only.
func (m *Monitor) update(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	var toFire []func()
	if online && !wasOnline {
		toFire = append(toFire, m.callbacks...)
	}
	m.mu.Unlock()

	if wasOnline != online {
		logging.Info("Network reachability changed", map[string]interface{}{
			"was_online": wasOnline,
			"is_online":  online,
		})
	}

	for _, fn := range toFire {
		fn()
	}
}
