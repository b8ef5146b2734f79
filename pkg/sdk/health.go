package searchsync

import (
	"context"
	"slices"

	healthuc "github.com/kailas-cloud/searchsync/internal/usecase/health"
)

// HealthStatus is the aggregated health of the client's dependencies.
// Status is "ok", "degraded" (an optional component failed) or "error"
// (the record store is unreachable).
type HealthStatus struct {
	Status string
	Checks map[string]string // component → "ok" or "error"
}

// Healthy reports whether every component answered.
func (h HealthStatus) Healthy() bool { return h.Status == string(healthuc.Healthy) }

// Failing returns the failed components in name order.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, res := range h.Checks {
		if res != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Health checks the record store, the bus when units are published, and the
// engine backend when its driver can be pinged.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
