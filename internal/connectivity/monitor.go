// Package connectivity tracks reachability of a junction's upstream
// dependencies (detection feed, backend link) and exposes a debounced
// online/offline state the timing controller reads on every plan
// computation.
package connectivity

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flextraff/atcs/internal/timeutil"
)

// Defaults chosen to tolerate a single transient blip without dropping
// a junction into fallback, while still reacting within ~90s.
const (
	DefaultInterval         = 30 * time.Second
	DefaultProbeTimeout     = 5 * time.Second
	DefaultFailureThreshold = 3
	DefaultSuccessThreshold = 3
)

// Probe is one reachability check against an upstream dependency. A
// nil return means reachable. Implementations must honor the context
// deadline; a probe that overruns it counts as a failure for that tick.
type Probe interface {
	Check(ctx context.Context) error
}

// State is an immutable snapshot of the monitor's view of
// connectivity. The whole value is published atomically on every tick,
// so readers never observe the online flag and its counters out of
// step.
type State struct {
	Online               bool      `json:"is_online"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	LastCheckedAt        time.Time `json:"last_checked_at"`
	LastTransitionAt     time.Time `json:"last_transition_at"`
}

// Config contains configuration for a Monitor.
type Config struct {
	// Probes are the upstream checks; a tick succeeds only if every
	// probe succeeds.
	Probes []Probe
	// Interval is the time between ticks (default 30s).
	Interval time.Duration
	// ProbeTimeout bounds one tick's probing (default 5s).
	ProbeTimeout time.Duration
	// FailureThreshold is the number of consecutive failed ticks before
	// Online -> Offline (default 3).
	FailureThreshold int
	// SuccessThreshold is the number of consecutive successful ticks
	// before Offline -> Online (default 3).
	SuccessThreshold int
	// Logger is optional; if nil, uses log.Default().
	Logger *log.Logger
	// Clock is optional; if nil, the real clock is used. Tests inject
	// a timeutil.MockClock to drive the loop deterministically.
	Clock timeutil.Clock
}

// Monitor runs the periodic probe loop for one junction and publishes
// State snapshots. Exactly one goroutine writes the state (the tick
// loop); any number of goroutines may read it without blocking.
type Monitor struct {
	probes           []Probe
	interval         time.Duration
	probeTimeout     time.Duration
	failureThreshold int
	successThreshold int
	logger           *log.Logger
	clock            timeutil.Clock

	state atomic.Pointer[State]

	tickMu sync.Mutex // serializes ticks; never two run concurrently

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMonitor creates a Monitor. The monitor starts Online: the field
// units boot assuming connectivity and the first few ticks correct the
// state if that assumption is wrong.
func NewMonitor(cfg Config) *Monitor {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	m := &Monitor{
		probes:           cfg.Probes,
		interval:         cfg.Interval,
		probeTimeout:     cfg.ProbeTimeout,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		logger:           logger,
		clock:            cfg.Clock,
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.probeTimeout <= 0 {
		m.probeTimeout = DefaultProbeTimeout
	}
	if m.failureThreshold <= 0 {
		m.failureThreshold = DefaultFailureThreshold
	}
	if m.successThreshold <= 0 {
		m.successThreshold = DefaultSuccessThreshold
	}
	if m.clock == nil {
		m.clock = timeutil.RealClock{}
	}

	now := m.clock.Now().UTC()
	m.state.Store(&State{
		Online:           true,
		LastCheckedAt:    now,
		LastTransitionAt: now,
	})
	return m
}

// Snapshot returns the most recently published State. It never blocks,
// regardless of a probe in flight.
func (m *Monitor) Snapshot() State {
	return *m.state.Load()
}

// Run starts the periodic probe loop. It blocks until the context is
// cancelled or Stop is called, and returns nil on clean shutdown.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil // already running
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	defer func() {
		close(m.doneCh)
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Printf("connectivity monitor started: interval=%v probes=%d", m.interval, len(m.probes))

	for {
		select {
		case <-ctx.Done():
			m.logger.Printf("connectivity monitor stopping: context cancelled")
			return nil
		case <-stopCh:
			m.logger.Printf("connectivity monitor stopping: Stop() called")
			return nil
		case <-ticker.C():
			m.Tick(ctx)
		}
	}
}

// Stop requests the monitor to stop and waits for the loop to exit.
// Safe to call multiple times.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	select {
	case <-m.stopCh:
	default:
		close(m.stopCh)
	}
	m.mu.Unlock()

	<-m.doneCh
}

// IsRunning reports whether the probe loop is active.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Tick performs one probe round and publishes the resulting State.
// Run calls it on every interval; it is exported so startup code can
// establish a first reading before serving traffic. Ticks are
// serialized: a tick that arrives while another is in flight waits.
func (m *Monitor) Tick(ctx context.Context) State {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	ok := m.probeAll(ctx)

	prev := m.Snapshot()
	next := prev
	now := m.clock.Now().UTC()
	next.LastCheckedAt = now

	if ok {
		next.ConsecutiveSuccesses++
		next.ConsecutiveFailures = 0
	} else {
		next.ConsecutiveFailures++
		next.ConsecutiveSuccesses = 0
	}

	switch {
	case prev.Online && next.ConsecutiveFailures >= m.failureThreshold:
		next.Online = false
		next.LastTransitionAt = now
		next.ConsecutiveSuccesses = 0
		m.logger.Printf("connectivity lost after %d consecutive failed checks, entering offline mode", next.ConsecutiveFailures)
	case !prev.Online && next.ConsecutiveSuccesses >= m.successThreshold:
		next.Online = true
		next.LastTransitionAt = now
		next.ConsecutiveFailures = 0
		m.logger.Printf("connectivity restored after %d consecutive successful checks, resuming adaptive mode", next.ConsecutiveSuccesses)
	}

	m.state.Store(&next)
	return next
}

// probeAll runs every probe under one bounded timeout. The first
// failure decides the tick; remaining probes are skipped.
func (m *Monitor) probeAll(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	for _, p := range m.probes {
		if err := p.Check(pctx); err != nil {
			m.logger.Printf("reachability probe failed: %v", err)
			return false
		}
	}
	return true
}
