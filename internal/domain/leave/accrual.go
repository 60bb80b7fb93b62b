package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	JobMonthlyAccrual = "leave_monthly_accrual"
	JobAnnualReset    = "leave_annual_reset"

	ReasonNotFirstOfMonth = "not first day of month"
	ReasonNotJanuaryFirst = "not January 1st"
)

type RunOptions struct {
	// AsOf replaces the current time; zero means now.
	AsOf time.Time
	// Force runs the accrual on a day other than the 1st.
	Force bool
}

type accrualOutcome int

const (
	outcomeApplied accrualOutcome = iota
	outcomeSkipped
)

// RunMonthlyAccrual credits every active employee with the accrual of the
// month preceding the as-of month. Re-running in the same month is a no-op
// per employee.
func (s *Service) RunMonthlyAccrual(ctx context.Context, opts RunOptions) (RunSummary, error) {
	asOf := s.asOf(opts.AsOf)
	summary := RunSummary{Job: JobMonthlyAccrual, AsOf: asOf}
	if asOf.Day() != 1 && !opts.Force {
		summary.Reason = ReasonNotFirstOfMonth
		slog.Info("leave accrual run skipped", "asOf", asOf, "reason", summary.Reason)
		return summary, nil
	}
	workMonth := StartOfMonth(asOf).AddDate(0, -1, 0)

	listCtx, cancel := s.storeCtx(ctx)
	employees, err := s.Store.ListActiveEmployees(listCtx)
	cancel()
	if err != nil {
		slog.Error("leave accrual run failed", "asOf", asOf, "err", err)
		return summary, fmt.Errorf("list employees: %w", err)
	}
	summary.Total = len(employees)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, emp := range employees {
		g.Go(func() error {
			amount, err := MonthlyAccrualFor(emp.HireDate, workMonth, MonthlyAccrualRate)
			if err != nil {
				return fmt.Errorf("employee %s: %w", emp.ID, err)
			}
			outcome, err := s.accrueEmployee(gctx, emp, workMonth, asOf, amount)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.ErrorCount++
				slog.Warn("leave accrual failed for employee", "employeeId", emp.ID, "err", err)
			case outcome == outcomeSkipped:
				summary.SkippedCount++
			default:
				summary.ResetCount++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("leave accrual run aborted", "asOf", asOf, "err", err)
		return summary, err
	}

	summary.Success = true
	slog.Info("leave accrual run finished",
		"asOf", asOf,
		"resetCount", summary.ResetCount,
		"skippedCount", summary.SkippedCount,
		"errorCount", summary.ErrorCount,
		"total", summary.Total)
	return summary, nil
}

func (s *Service) accrueEmployee(ctx context.Context, emp Employee, workMonth, asOf time.Time, amount decimal.Decimal) (accrualOutcome, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	outcome := outcomeApplied
	err := s.Store.WithTx(ctx, func(tx TxStore) error {
		outcome = outcomeApplied
		rec, err := getOrCreateTx(ctx, tx, emp, workMonth.Year(), asOf, true)
		if err != nil {
			return err
		}
		if AlreadyAccruedForMonth(rec, asOf) {
			outcome = outcomeSkipped
			return nil
		}
		if _, err := saveDeltas(ctx, tx, rec, asOf, true, accrualDeltas(amount)...); err != nil {
			return err
		}
		if workMonth.Year() == asOf.Year() || amount.IsZero() {
			return nil
		}

		// December credit reaching a current-year record opened early.
		current, err := tx.LockBalanceFor(ctx, emp.ID, asOf.Year())
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = saveDeltas(ctx, tx, current, asOf, false,
			Delta{Field: FieldVacationBalance, Amount: amount},
			Delta{Field: FieldSickBalance, Amount: amount})
		return err
	})
	return outcome, err
}

// accrualDeltas credits vacation and sick only; emergency leave is granted
// yearly and never accrues.
func accrualDeltas(amount decimal.Decimal) []Delta {
	return []Delta{
		{Field: FieldVacationBalance, Amount: amount},
		{Field: FieldInitialVacationCredits, Amount: amount},
		{Field: FieldSickBalance, Amount: amount},
		{Field: FieldInitialSickCredits, Amount: amount},
	}
}
