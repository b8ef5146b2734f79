package health

import (
	"context"
	"sync"
	"time"
)

// Status is the aggregated health of the process.
type Status string

// Statuses. A failed required component is Unhealthy, a failed optional one Degraded.
const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded"
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one component check.
type CheckResult string

// Check results.
const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentDatabase = "database"
	ComponentQueue    = "queue"
	ComponentEngine   = "engine"
)

// DefaultTimeout bounds every check.
const DefaultTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type component struct {
	name     string
	required bool
	check    func(ctx context.Context) error
}

// Service runs component checks concurrently.
type Service struct {
	checks  []component
	timeout time.Duration
}

// New creates a Service. The record store is required; queue and engine
// are optional and may be nil (units run inline, driver has no ping).
func New(db DBPinger, queue QueueChecker, eng EnginePinger) *Service {
	s := &Service{timeout: DefaultTimeout}
	s.checks = append(s.checks, component{name: ComponentDatabase, required: true, check: db.Ping})
	if queue != nil {
		s.checks = append(s.checks, component{name: ComponentQueue, check: queue.HealthCheck})
	}
	if eng != nil {
		s.checks = append(s.checks, component{name: ComponentEngine, check: eng.Ping})
	}
	return s
}

// Check runs every component check.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results := make([]CheckResult, len(s.checks))
	var wg sync.WaitGroup
	for i, c := range s.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = CheckOK
			if err := c.check(ctx); err != nil {
				results[i] = CheckError
			}
		}()
	}
	wg.Wait()

	report := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.checks))}
	for i, c := range s.checks {
		report.Checks[c.name] = results[i]
		if results[i] == CheckOK {
			continue
		}
		if c.required {
			report.Status = Unhealthy
		} else if report.Status == Healthy {
			report.Status = Degraded
		}
	}
	return report
}
