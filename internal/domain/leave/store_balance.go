package leave

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

const balanceColumns = `
    id::text, employee_id::text, year,
    vacation_balance, sick_balance, emergency_balance,
    initial_vacation_credits, initial_sick_credits, initial_emergency_credits,
    vacation_used, sick_used, emergency_used,
    accrued_at, updated_at`

func scanBalance(row pgx.Row) (BalanceRecord, error) {
	var rec BalanceRecord
	var accruedAt *time.Time
	err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.Year,
		&rec.VacationBalance, &rec.SickBalance, &rec.EmergencyBalance,
		&rec.InitialVacationCredits, &rec.InitialSickCredits, &rec.InitialEmergencyCredits,
		&rec.VacationUsed, &rec.SickUsed, &rec.EmergencyUsed,
		&accruedAt, &rec.UpdatedAt)
	if err != nil {
		return BalanceRecord{}, err
	}
	if accruedAt != nil {
		rec.AccruedAt = accruedAt.UTC()
	}
	return rec, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Store) FindBalance(ctx context.Context, employeeID string, year int) (BalanceRecord, error) {
	var rec BalanceRecord
	err := readRetry(ctx, "find balance", func() error {
		var err error
		rec, err = scanBalance(s.DB.QueryRow(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE employee_id = $1 AND year = $2
  `, employeeID, year))
		return err
	})
	return rec, err
}

func (s *Store) ListBalancesForYear(ctx context.Context, year int) ([]BalanceRecord, error) {
	var out []BalanceRecord
	err := readRetry(ctx, "list balances", func() error {
		rows, err := s.DB.Query(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE year = $1
    ORDER BY employee_id
  `, year)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]BalanceRecord, 0)
		for rows.Next() {
			rec, err := scanBalance(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	return out, err
}

func (t *pgTx) BalanceFor(ctx context.Context, employeeID string, year int) (BalanceRecord, error) {
	rec, err := scanBalance(t.tx.QueryRow(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE employee_id = $1 AND year = $2
  `, employeeID, year))
	return rec, storeErr("balance for", err)
}

func (t *pgTx) LockBalance(ctx context.Context, balanceID string) (BalanceRecord, error) {
	rec, err := scanBalance(t.tx.QueryRow(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE id = $1
    FOR UPDATE
  `, balanceID))
	return rec, storeErr("lock balance", err)
}

func (t *pgTx) LockBalanceFor(ctx context.Context, employeeID string, year int) (BalanceRecord, error) {
	rec, err := scanBalance(t.tx.QueryRow(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE employee_id = $1 AND year = $2
    FOR UPDATE
  `, employeeID, year))
	return rec, storeErr("lock balance", err)
}

// InsertBalance is a no-op when a concurrent transaction created the row first.
func (t *pgTx) InsertBalance(ctx context.Context, rec BalanceRecord) error {
	_, err := t.tx.Exec(ctx, `
    INSERT INTO leave_balances (
      employee_id, year,
      vacation_balance, sick_balance, emergency_balance,
      initial_vacation_credits, initial_sick_credits, initial_emergency_credits,
      vacation_used, sick_used, emergency_used,
      accrued_at, updated_at
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    ON CONFLICT (employee_id, year) DO NOTHING
  `, rec.EmployeeID, rec.Year,
		rec.VacationBalance, rec.SickBalance, rec.EmergencyBalance,
		rec.InitialVacationCredits, rec.InitialSickCredits, rec.InitialEmergencyCredits,
		rec.VacationUsed, rec.SickUsed, rec.EmergencyUsed,
		nullableTime(rec.AccruedAt), rec.UpdatedAt)
	return storeErr("insert balance", err)
}

func (t *pgTx) SaveBalance(ctx context.Context, rec BalanceRecord) error {
	tag, err := t.tx.Exec(ctx, `
    UPDATE leave_balances
    SET vacation_balance = $1, sick_balance = $2, emergency_balance = $3,
        initial_vacation_credits = $4, initial_sick_credits = $5, initial_emergency_credits = $6,
        vacation_used = $7, sick_used = $8, emergency_used = $9,
        accrued_at = $10, updated_at = $11
    WHERE id = $12
  `, rec.VacationBalance, rec.SickBalance, rec.EmergencyBalance,
		rec.InitialVacationCredits, rec.InitialSickCredits, rec.InitialEmergencyCredits,
		rec.VacationUsed, rec.SickUsed, rec.EmergencyUsed,
		nullableTime(rec.AccruedAt), rec.UpdatedAt, rec.ID)
	if err != nil {
		return storeErr("save balance", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
