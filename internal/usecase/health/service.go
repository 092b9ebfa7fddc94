package health

import (
	"context"
	"sync"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. Searches still run without cache or event bus.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component is a named dependency probed by Check.
type Component struct {
	Name   string
	Pinger Pinger
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	components []Component
}

// New creates a Service. Components with a nil Pinger are skipped.
func New(components ...Component) *Service {
	s := &Service{}
	for _, c := range components {
		if c.Pinger != nil {
			s.components = append(s.components, c)
		}
	}
	return s
}

// Check probes all components concurrently.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.components))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, c := range s.components {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := CheckOK
			if err := c.Pinger.Ping(ctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[c.Name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}
