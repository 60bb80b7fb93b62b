package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"stationhr/internal/domain/leave"
	"stationhr/internal/platform/metrics"
	"stationhr/internal/platform/querier"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Service runs the leave batch jobs and records each run in job_runs.
// DB may be nil, in which case runs are not recorded.
type Service struct {
	DB      querier.Querier
	Leave   *leave.Service
	Metrics *metrics.Collector
}

func New(db querier.Querier, leaveSvc *leave.Service, collector *metrics.Collector) *Service {
	return &Service{DB: db, Leave: leaveSvc, Metrics: collector}
}

func (s *Service) MonthlyAccrual(ctx context.Context, opts leave.RunOptions) (leave.RunSummary, error) {
	return s.runJob(ctx, "accrual", leave.JobMonthlyAccrual, func(ctx context.Context) (leave.RunSummary, error) {
		return s.Leave.RunMonthlyAccrual(ctx, opts)
	})
}

func (s *Service) AnnualReset(ctx context.Context, opts leave.RunOptions) (leave.RunSummary, error) {
	return s.runJob(ctx, "reset", leave.JobAnnualReset, func(ctx context.Context) (leave.RunSummary, error) {
		return s.Leave.RunAnnualReset(ctx, opts.AsOf)
	})
}

func runStatus(summary leave.RunSummary, err error) string {
	switch {
	case err != nil:
		return StatusFailed
	case !summary.Success:
		return StatusSkipped
	default:
		return StatusCompleted
	}
}

func (s *Service) runJob(ctx context.Context, kind, jobType string, run func(context.Context) (leave.RunSummary, error)) (leave.RunSummary, error) {
	runID := ""
	if s.DB != nil {
		if err := s.DB.QueryRow(ctx, `
      INSERT INTO job_runs (job_type, status)
      VALUES ($1,$2)
      RETURNING id::text
    `, jobType, StatusRunning).Scan(&runID); err != nil {
			slog.Warn("job run insert failed", "jobType", jobType, "err", err)
		}
	}

	summary, err := run(ctx)
	status := runStatus(summary, err)

	details := map[string]any{"summary": summary}
	if err != nil {
		details["error"] = err.Error()
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "jobType", jobType, "err", updErr)
		}
	}
	if s.Metrics != nil {
		s.Metrics.RecordJob(kind, status, summary.ErrorCount)
	}
	return summary, err
}
