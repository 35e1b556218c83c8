// Package health serves liveness and readiness endpoints.
//
// Every registered check is polled in its own goroutine. A check turns
// unhealthy only after failing a number of times in a row and healthy again
// after succeeding a number of times in a row, so a single blip does not
// flip the reported status.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc reports a problem with a dependency, or nil when it is healthy.
type CheckFunc func(ctx context.Context) error

// Default thresholds for registered checks.
const (
	DefaultFailureThreshold = 3
	DefaultSuccessThreshold = 1
)

// CheckOption tunes a single check.
type CheckOption func(p *check)

// WithFailureThreshold sets how many consecutive failures mark a check
// unhealthy.
func WithFailureThreshold(n int) CheckOption {
	return func(p *check) { p.failAfter = max(n, 1) }
}

// WithSuccessThreshold sets how many consecutive successes mark a failed
// check healthy again.
func WithSuccessThreshold(n int) CheckOption {
	return func(p *check) { p.passAfter = max(n, 1) }
}

// checkState is swapped atomically so readers see health and error together.
type checkState struct {
	healthy bool
	err     error
}

// check is one registered CheckFunc. Streak counters belong to the polling
// goroutine; state is read by HTTP handlers.
type check struct {
	name      string
	timeout   time.Duration
	fn        CheckFunc
	failAfter int
	passAfter int

	state atomic.Pointer[checkState]

	fails  int
	passes int
}

func newCheck(name string, timeout time.Duration, fn CheckFunc, opts []CheckOption) *check {
	p := &check{
		name:      name,
		timeout:   timeout,
		fn:        fn,
		failAfter: DefaultFailureThreshold,
		passAfter: DefaultSuccessThreshold,
	}
	for _, o := range opts {
		o(p)
	}
	p.state.Store(&checkState{healthy: true})
	return p
}

// run executes the check once and applies the thresholds.
func (p *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(ctx)
	healthy := p.state.Load().healthy
	if err != nil {
		p.passes = 0
		p.fails++
		if p.fails >= p.failAfter {
			healthy = false
		}
	} else {
		p.fails = 0
		p.passes++
		if p.passes >= p.passAfter {
			healthy = true
		}
	}
	p.state.Store(&checkState{healthy: healthy, err: err})
}

// poll runs the check immediately and then every interval until ctx is done.
func (p *check) poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

// failure describes an unhealthy check, or returns "" when it is healthy.
func (p *check) failure() string {
	st := p.state.Load()
	switch {
	case st.healthy:
		return ""
	case st.err != nil:
		return st.err.Error()
	default:
		return "check is unhealthy"
	}
}

// Health tracks liveness and readiness of the service.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	live   []*check
	readyz []*check
	cancel context.CancelFunc
}

// New returns a Health that is alive but not ready. Call SetReady(true)
// once initialization has finished.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that decides whether the process should
// be restarted, such as goroutine leaks or GC pressure.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...CheckOption) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.live = append(h.live, newCheck(name, timeout, fn, opts))
}

// AddReadinessCheck registers a check that decides whether the service should
// receive traffic, such as storage reachability.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...CheckOption) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readyz = append(h.readyz, newCheck(name, timeout, fn, opts))
}

// Start polls every registered check at interval until ctx is done or Stop
// is called. Register checks before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := slices.Concat(h.live, h.readyz)
	h.mu.Unlock()

	for _, p := range checks {
		go p.poll(ctx, interval)
	}
}

// Stop ends polling. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady marks the service ready or, during shutdown, not ready.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	return len(failures(h.snapshot(false))) == 0
}

func (h *Health) snapshot(live bool) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if live {
		return slices.Clone(h.live)
	}
	return slices.Clone(h.readyz)
}

func failures(checks []*check) map[string]string {
	out := make(map[string]string)
	for _, p := range checks {
		if msg := p.failure(); msg != "" {
			out[p.name] = msg
		}
	}
	return out
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} while all liveness checks
// pass, otherwise 503 listing the failing checks.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.snapshot(true)))
}

// ReadyEndpoint serves /readyz: 200 {"status":"ok"} when the service is
// marked ready and all readiness checks pass, otherwise 503 with details.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := failures(h.snapshot(false))
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

// writeStatus writes the status body. Failing check names are sorted.
func writeStatus(w http.ResponseWriter, failed map[string]string) {
	status, text := http.StatusOK, "ok"
	if len(failed) > 0 {
		status, text = http.StatusServiceUnavailable, "unhealthy"
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(text) })
		if len(failed) == 0 {
			return
		}
		names := make([]string, 0, len(failed))
		for name := range failed {
			names = append(names, name)
		}
		slices.Sort(names)
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, name := range names {
					e.Field(name, func(e *jx.Encoder) { e.Str(failed[name]) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
