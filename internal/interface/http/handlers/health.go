// Package handlers contains reusable HTTP building blocks: health checks and
// middleware.
package handlers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// HealthChecker reports the health of the service dependencies.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthCheckFunc returns an error when its dependency is unusable.
type HealthCheckFunc func(ctx context.Context) error

// Status values reported in HealthStatus.Status.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// HealthStatus aggregates every registered check.
//
// A failing critical check makes the service unhealthy and not ready. A failing
// optional check only degrades it: the service keeps serving without it.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Healthy   bool                   `json:"healthy"`
	Ready     bool                   `json:"ready"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Healthy  bool   `json:"healthy"`
	Critical bool   `json:"critical"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

type registeredCheck struct {
	name     string
	check    HealthCheckFunc
	critical bool
}

// CompositeHealthChecker runs its checks in parallel, each under its own timeout.
type CompositeHealthChecker struct {
	mu        sync.RWMutex
	checks    []registeredCheck
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewCompositeHealthChecker creates a checker with no checks.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		startTime: time.Now(),
		version:   version,
		timeout:   3 * time.Second,
	}
}

// SetTimeout sets the per-check timeout.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// AddCheck registers a critical check. Registering a name again replaces it.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.add(registeredCheck{name: name, check: check, critical: true})
}

// AddOptionalCheck registers a check whose failure only degrades the service.
func (c *CompositeHealthChecker) AddOptionalCheck(name string, check HealthCheckFunc) {
	c.add(registeredCheck{name: name, check: check})
}

func (c *CompositeHealthChecker) add(rc registeredCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.checks {
		if c.checks[i].name == rc.name {
			c.checks[i] = rc
			return
		}
	}
	c.checks = append(c.checks, rc)
}

// Check runs every check and aggregates the results.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := append([]registeredCheck(nil), c.checks...)
	timeout := c.timeout
	c.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusOK,
		Healthy:   true,
		Ready:     true,
		Checks:    make(map[string]CheckResult, len(checks)),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}

	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup
	for i, rc := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = runCheck(ctx, rc, timeout)
		}()
	}
	wg.Wait()

	var down, degraded []string
	for i, rc := range checks {
		r := results[i]
		status.Checks[rc.name] = r
		switch {
		case r.Healthy:
		case rc.critical:
			down = append(down, rc.name)
		default:
			degraded = append(degraded, rc.name)
		}
	}

	switch {
	case len(down) > 0:
		status.Status = StatusDown
		status.Healthy = false
		status.Ready = false
		status.Message = "Some checks failed: " + joinSorted(down)
	case len(degraded) > 0:
		status.Status = StatusDegraded
		status.Message = "Running without: " + joinSorted(degraded)
	}
	return status
}

func runCheck(ctx context.Context, rc registeredCheck, timeout time.Duration) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := rc.check(checkCtx)
	result := CheckResult{
		Healthy:  err == nil,
		Critical: rc.critical,
		Message:  "OK",
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		result.Message = err.Error()
	}
	return result
}

func joinSorted(names []string) string {
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Pinger is anything that can report its connectivity, such as the postgres
// connection or the redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingCheck creates a health check from a Pinger.
func NewPingCheck(p Pinger) HealthCheckFunc {
	return p.Ping
}
