package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	accrualRuns       uint64
	resetRuns         uint64
	skippedRuns       uint64
	failedRuns        uint64
	jobEmployeeErrors uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordJob counts one batch run. kind is "accrual" or "reset"; status is the
// job_runs status the run ended with.
func (c *Collector) RecordJob(kind, status string, employeeErrors int) {
	switch kind {
	case "accrual":
		atomic.AddUint64(&c.accrualRuns, 1)
	case "reset":
		atomic.AddUint64(&c.resetRuns, 1)
	}
	switch status {
	case "skipped":
		atomic.AddUint64(&c.skippedRuns, 1)
	case "failed":
		atomic.AddUint64(&c.failedRuns, 1)
	}
	if employeeErrors > 0 {
		atomic.AddUint64(&c.jobEmployeeErrors, uint64(employeeErrors))
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":     total,
		"errorsTotal":       errs,
		"rateLimitedTotal":  limited,
		"avgDurationMs":     avg,
		"totalDurationMs":   totalMs,
		"accrualRuns":       atomic.LoadUint64(&c.accrualRuns),
		"resetRuns":         atomic.LoadUint64(&c.resetRuns),
		"skippedRuns":       atomic.LoadUint64(&c.skippedRuns),
		"failedRuns":        atomic.LoadUint64(&c.failedRuns),
		"jobEmployeeErrors": atomic.LoadUint64(&c.jobEmployeeErrors),
	}
}
