package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"

	"stationhr/internal/domain/leave"
)

// MonthlyAccrualArgs pins the run date at enqueue time. Retries move
// scheduled_at forward, so the worker must not derive the date from it.
type MonthlyAccrualArgs struct {
	AsOf time.Time `json:"as_of"`
}

func (MonthlyAccrualArgs) Kind() string { return leave.JobMonthlyAccrual }

type AnnualResetArgs struct {
	AsOf time.Time `json:"as_of"`
}

func (AnnualResetArgs) Kind() string { return leave.JobAnnualReset }

// jobAsOf prefers the pinned date and falls back to the row's creation time
// for jobs enqueued without one.
func jobAsOf(pinned time.Time, row *rivertype.JobRow) time.Time {
	if !pinned.IsZero() {
		return pinned
	}
	return row.CreatedAt
}

type monthlyAccrualWorker struct {
	river.WorkerDefaults[MonthlyAccrualArgs]
	jobs *Service
}

func (w *monthlyAccrualWorker) Work(ctx context.Context, job *river.Job[MonthlyAccrualArgs]) error {
	_, err := w.jobs.MonthlyAccrual(ctx, leave.RunOptions{AsOf: jobAsOf(job.Args.AsOf, job.JobRow)})
	return err
}

type annualResetWorker struct {
	river.WorkerDefaults[AnnualResetArgs]
	jobs *Service
}

func (w *annualResetWorker) Work(ctx context.Context, job *river.Job[AnnualResetArgs]) error {
	_, err := w.jobs.AnnualReset(ctx, leave.RunOptions{AsOf: jobAsOf(job.Args.AsOf, job.JobRow)})
	return err
}

// monthlySchedule fires at midnight UTC on the 1st of each month. A non-zero
// month restricts it to the 1st of that month.
type monthlySchedule struct {
	month time.Month
}

func (s monthlySchedule) Next(current time.Time) time.Time {
	t := current.UTC()
	next := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	if s.month == 0 {
		return next
	}
	for next.Month() != s.month {
		next = next.AddDate(0, 1, 0)
	}
	return next
}

func PeriodicJobs() []*river.PeriodicJob {
	unique := &river.InsertOpts{UniqueOpts: river.UniqueOpts{ByPeriod: 24 * time.Hour}}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(monthlySchedule{}, func() (river.JobArgs, *river.InsertOpts) {
			return MonthlyAccrualArgs{AsOf: leave.DateOf(time.Now())}, unique
		}, nil),
		river.NewPeriodicJob(monthlySchedule{month: time.January}, func() (river.JobArgs, *river.InsertOpts) {
			return AnnualResetArgs{AsOf: leave.DateOf(time.Now())}, unique
		}, nil),
	}
}

func NewRiverClient(pool *pgxpool.Pool, svc *Service) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, &monthlyAccrualWorker{jobs: svc})
	river.AddWorker(workers, &annualResetWorker{jobs: svc})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers:      workers,
		PeriodicJobs: PeriodicJobs(),
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	return client, nil
}

// MigrateRiver creates or upgrades River's own tables.
func MigrateRiver(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	slog.Info("river migrations applied")
	return nil
}
