package leave

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunAnnualReset zeroes emergency leave for the as-of year. Every active
// employee hired by the as-of date gets a zeroed record, opening it when
// missing, so a record looked up later that day cannot come back with a
// fresh grant. Existing records of inactive employees are zeroed too.
// It only acts on January 1st.
func (s *Service) RunAnnualReset(ctx context.Context, asOfOverride time.Time) (RunSummary, error) {
	asOf := s.asOf(asOfOverride)
	summary := RunSummary{Job: JobAnnualReset, AsOf: asOf}
	if asOf.Month() != time.January || asOf.Day() != 1 {
		summary.Reason = ReasonNotJanuaryFirst
		slog.Info("leave annual reset skipped", "asOf", asOf, "reason", summary.Reason)
		return summary, nil
	}

	listCtx, cancel := s.storeCtx(ctx)
	employees, err := s.Store.ListActiveEmployees(listCtx)
	cancel()
	if err != nil {
		slog.Error("leave annual reset failed", "asOf", asOf, "err", err)
		return summary, fmt.Errorf("list employees: %w", err)
	}
	listCtx, cancel = s.storeCtx(ctx)
	records, err := s.Store.ListBalancesForYear(listCtx, asOf.Year())
	cancel()
	if err != nil {
		slog.Error("leave annual reset failed", "asOf", asOf, "err", err)
		return summary, fmt.Errorf("list balances: %w", err)
	}

	active := make(map[string]bool, len(employees))
	for _, emp := range employees {
		active[emp.ID] = true
	}
	var orphans []BalanceRecord
	for _, rec := range records {
		if !active[rec.EmployeeID] {
			orphans = append(orphans, rec)
		}
	}
	summary.Total = len(employees) + len(orphans)

	var mu sync.Mutex
	tally := func(err error, skipped bool, attrs ...any) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			summary.ErrorCount++
			slog.Warn("leave annual reset failed for employee", append(attrs, "err", err)...)
		case skipped:
			summary.SkippedCount++
		default:
			summary.ResetCount++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, emp := range employees {
		g.Go(func() error {
			if DateOf(emp.HireDate).After(DateOf(asOf)) {
				tally(nil, true)
				return nil
			}
			tally(s.resetEmployee(gctx, emp, asOf), false, "employeeId", emp.ID)
			return nil
		})
	}
	for _, rec := range orphans {
		g.Go(func() error {
			tally(s.resetRecord(gctx, rec.ID, asOf), false, "employeeId", rec.EmployeeID, "balanceId", rec.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("leave annual reset aborted", "asOf", asOf, "err", err)
		return summary, err
	}

	summary.Success = true
	slog.Info("leave annual reset finished",
		"asOf", asOf,
		"resetCount", summary.ResetCount,
		"skippedCount", summary.SkippedCount,
		"errorCount", summary.ErrorCount,
		"total", summary.Total)
	return summary, nil
}

func (s *Service) resetEmployee(ctx context.Context, emp Employee, asOf time.Time) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.Store.WithTx(ctx, func(tx TxStore) error {
		rec, err := getOrCreateTx(ctx, tx, emp, asOf.Year(), asOf, true)
		if err != nil {
			return err
		}
		return zeroEmergency(ctx, tx, rec, asOf)
	})
}

func (s *Service) resetRecord(ctx context.Context, balanceID string, asOf time.Time) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.Store.WithTx(ctx, func(tx TxStore) error {
		rec, err := tx.LockBalance(ctx, balanceID)
		if err != nil {
			return err
		}
		return zeroEmergency(ctx, tx, rec, asOf)
	})
}

func zeroEmergency(ctx context.Context, tx TxStore, rec BalanceRecord, asOf time.Time) error {
	_, err := saveDeltas(ctx, tx, rec, asOf, false,
		Delta{Field: FieldEmergencyBalance, Amount: rec.EmergencyBalance.Neg()},
		Delta{Field: FieldEmergencyUsed, Amount: rec.EmergencyUsed.Neg()})
	return err
}
