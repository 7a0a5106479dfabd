package handlers

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/taskmaster/pkg/circuitbreaker"
)

// Probe checks one dependency. A nil error means it is usable.
type Probe func(ctx context.Context) error

// HealthChecker is what the HTTP server asks on /health and /ready.
type HealthChecker interface {
	Check(ctx context.Context) HealthReport
}

// Overall states of a HealthReport.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFailing  = "failing"
)

// HealthReport is the outcome of one round of probes.
type HealthReport struct {
	Status    string                 `json:"status"`
	Healthy   bool                   `json:"healthy"`
	Ready     bool                   `json:"ready"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]ProbeResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// ProbeResult is the outcome of a single probe.
type ProbeResult struct {
	Healthy  bool   `json:"healthy"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message"`
	Took     string `json:"took"`
}

type namedProbe struct {
	name     string
	probe    Probe
	optional bool
}

// Health runs its probes concurrently, each under its own timeout. A
// failed required probe makes the service unhealthy and unready; a failed
// optional one only marks it degraded.
type Health struct {
	version string
	started time.Time
	timeout time.Duration

	mu     sync.RWMutex
	probes []namedProbe
}

var _ HealthChecker = (*Health)(nil)

// DefaultProbeTimeout bounds each probe unless SetProbeTimeout says otherwise.
const DefaultProbeTimeout = 5 * time.Second

func NewHealth(version string) *Health {
	return &Health{version: version, started: time.Now(), timeout: DefaultProbeTimeout}
}

func (h *Health) SetProbeTimeout(d time.Duration) {
	h.mu.Lock()
	h.timeout = d
	h.mu.Unlock()
}

// Require adds a probe the service cannot work without. Adding a name
// again replaces the earlier probe.
func (h *Health) Require(name string, p Probe) { h.add(namedProbe{name: name, probe: p}) }

// Optional adds a probe whose failure only degrades the service.
func (h *Health) Optional(name string, p Probe) {
	h.add(namedProbe{name: name, probe: p, optional: true})
}

func (h *Health) add(np namedProbe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes = slices.DeleteFunc(h.probes, func(p namedProbe) bool { return p.name == np.name })
	h.probes = append(h.probes, np)
}

func (h *Health) Check(ctx context.Context) HealthReport {
	h.mu.RLock()
	probes := slices.Clone(h.probes)
	timeout := h.timeout
	h.mu.RUnlock()

	results := make([]ProbeResult, len(probes))
	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			results[i] = run(ctx, p, timeout)
			return nil
		})
	}
	_ = g.Wait()

	report := HealthReport{
		Status:    StatusOK,
		Healthy:   true,
		Ready:     true,
		Message:   "all probes passed",
		Checks:    make(map[string]ProbeResult, len(probes)),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}

	var failing, degraded []string
	for i, p := range probes {
		report.Checks[p.name] = results[i]
		if results[i].Healthy {
			continue
		}
		if p.optional {
			degraded = append(degraded, p.name)
		} else {
			failing = append(failing, p.name)
		}
	}
	slices.Sort(failing)
	slices.Sort(degraded)

	switch {
	case len(failing) > 0:
		report.Status = StatusFailing
		report.Healthy, report.Ready = false, false
		report.Message = "failing: " + strings.Join(failing, ", ")
	case len(degraded) > 0:
		report.Status = StatusDegraded
		report.Message = "degraded: " + strings.Join(degraded, ", ")
	}
	return report
}

func run(ctx context.Context, p namedProbe, timeout time.Duration) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := p.probe(ctx)
	res := ProbeResult{
		Healthy:  err == nil,
		Optional: p.optional,
		Message:  "ok",
		Took:     time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		res.Message = err.Error()
	}
	return res
}

// Pinger is a dependency that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping probes a database pool or a cache client.
func Ping(p Pinger) Probe { return p.Ping }

// ErrBreakerOpen is reported while a circuit breaker rejects calls.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// BreakerClosed fails while cb refuses calls.
func BreakerClosed(cb *circuitbreaker.CircuitBreaker) Probe {
	return func(context.Context) error {
		if cb.IsOpen() {
			return ErrBreakerOpen
		}
		return nil
	}
}
