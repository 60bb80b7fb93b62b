package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Balances fetches, lazily creates and mutates balance records.
type Balances struct {
	Store StoreAPI
}

func NewBalances(store StoreAPI) *Balances {
	return &Balances{Store: store}
}

func (b *Balances) GetOrCreate(ctx context.Context, employeeID string, year int, asOf time.Time) (BalanceRecord, error) {
	if err := validateYear(year, asOf); err != nil {
		return BalanceRecord{}, err
	}
	var rec BalanceRecord
	err := b.Store.WithTx(ctx, func(tx TxStore) error {
		emp, err := tx.Employee(ctx, employeeID)
		if err != nil {
			return err
		}
		rec, err = getOrCreateTx(ctx, tx, emp, year, asOf, true)
		return err
	})
	return rec, err
}

func (b *Balances) ApplyDelta(ctx context.Context, balanceID string, field Field, delta decimal.Decimal, at time.Time) (BalanceRecord, error) {
	return b.Apply(ctx, balanceID, at, Delta{Field: field, Amount: delta})
}

// Apply adds every delta to the record in one transaction holding its row lock.
func (b *Balances) Apply(ctx context.Context, balanceID string, at time.Time, deltas ...Delta) (BalanceRecord, error) {
	for _, d := range deltas {
		if !d.Field.Valid() {
			return BalanceRecord{}, fmt.Errorf("%w: unknown balance field %q", ErrInvalidArgument, d.Field)
		}
	}
	var rec BalanceRecord
	err := b.Store.WithTx(ctx, func(tx TxStore) error {
		locked, err := tx.LockBalance(ctx, balanceID)
		if err != nil {
			return err
		}
		rec, err = saveDeltas(ctx, tx, locked, at, false, deltas...)
		return err
	})
	return rec, err
}

// saveDeltas is the only place balance amounts are written back. rec must
// have been read with a Lock* call in the same transaction.
func saveDeltas(ctx context.Context, tx TxStore, rec BalanceRecord, at time.Time, markAccrued bool, deltas ...Delta) (BalanceRecord, error) {
	next, err := ApplyDeltas(rec, deltas...)
	if err != nil {
		return rec, err
	}
	next.UpdatedAt = at.UTC()
	if markAccrued {
		next.AccruedAt = at.UTC()
	}
	if err := tx.SaveBalance(ctx, next); err != nil {
		return rec, err
	}
	return next, nil
}

func getOrCreateTx(ctx context.Context, tx TxStore, emp Employee, year int, asOf time.Time, carry bool) (BalanceRecord, error) {
	rec, err := tx.LockBalanceFor(ctx, emp.ID, year)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return BalanceRecord{}, err
	}

	fresh, err := newBalanceRecord(ctx, tx, emp, year, asOf, carry)
	if err != nil {
		return BalanceRecord{}, err
	}
	if err := tx.InsertBalance(ctx, fresh); err != nil {
		return BalanceRecord{}, err
	}
	return tx.LockBalanceFor(ctx, emp.ID, year)
}

func newBalanceRecord(ctx context.Context, tx TxStore, emp Employee, year int, asOf time.Time, carry bool) (BalanceRecord, error) {
	vacation, err := InitialCredits(emp.HireDate, year, asOf, MonthlyAccrualRate, VacationCeiling)
	if err != nil {
		return BalanceRecord{}, err
	}
	sick, err := InitialCredits(emp.HireDate, year, asOf, MonthlyAccrualRate, SickCeiling)
	if err != nil {
		return BalanceRecord{}, err
	}

	vacation = ClampField(FieldInitialVacationCredits, vacation)
	sick = ClampField(FieldInitialSickCredits, sick)
	rec := BalanceRecord{
		EmployeeID:              emp.ID,
		Year:                    year,
		VacationBalance:         vacation,
		SickBalance:             sick,
		EmergencyBalance:        EmergencyGrant,
		InitialVacationCredits:  vacation,
		InitialSickCredits:      sick,
		InitialEmergencyCredits: EmergencyGrant,
		VacationUsed:            decimal.Zero,
		SickUsed:                decimal.Zero,
		EmergencyUsed:           decimal.Zero,
		AccruedAt:               referenceDate(year, asOf),
		UpdatedAt:               asOf.UTC(),
	}

	// Vacation and sick run on across years; emergency starts fresh.
	if carry && DateOf(emp.HireDate).Year() < year {
		prev, err := getOrCreateTx(ctx, tx, emp, year-1, asOf, false)
		if err != nil {
			return BalanceRecord{}, err
		}
		rec.VacationBalance = ClampField(FieldVacationBalance, rec.VacationBalance.Add(prev.VacationBalance))
		rec.SickBalance = ClampField(FieldSickBalance, rec.SickBalance.Add(prev.SickBalance))
	}
	return rec, nil
}

func validateYear(year int, asOf time.Time) error {
	verr := &ValidationError{}
	if year < 1900 {
		verr.add("year", "must be a calendar year")
	} else if year > asOf.UTC().Year() {
		verr.add("year", "must not be in the future")
	}
	return verr.orNil()
}
