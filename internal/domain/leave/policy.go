package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	MonthlyAccrualRate = decimal.RequireFromString("1.25")
	VacationCeiling    = decimal.NewFromInt(15)
	SickCeiling        = decimal.NewFromInt(15)
	EmergencyCeiling   = decimal.NewFromInt(5)
	EmergencyGrant     = EmergencyCeiling
)

// Field names a mutable column of a balance record.
type Field string

const (
	FieldVacationBalance         Field = "vacation_balance"
	FieldSickBalance             Field = "sick_balance"
	FieldEmergencyBalance        Field = "emergency_balance"
	FieldInitialVacationCredits  Field = "initial_vacation_credits"
	FieldInitialSickCredits      Field = "initial_sick_credits"
	FieldInitialEmergencyCredits Field = "initial_emergency_credits"
	FieldVacationUsed            Field = "vacation_used"
	FieldSickUsed                Field = "sick_used"
	FieldEmergencyUsed           Field = "emergency_used"
)

var fieldCeilings = map[Field]*decimal.Decimal{
	FieldVacationBalance:         &VacationCeiling,
	FieldSickBalance:             &SickCeiling,
	FieldEmergencyBalance:        &EmergencyCeiling,
	FieldInitialVacationCredits:  &VacationCeiling,
	FieldInitialSickCredits:      &SickCeiling,
	FieldInitialEmergencyCredits: &EmergencyCeiling,
	FieldVacationUsed:            nil,
	FieldSickUsed:                nil,
	FieldEmergencyUsed:           nil,
}

func (f Field) Valid() bool {
	_, ok := fieldCeilings[f]
	return ok
}

// Ceiling returns the upper bound of the field; used counters are unbounded.
func (f Field) Ceiling() (decimal.Decimal, bool) {
	c := fieldCeilings[f]
	if c == nil {
		return decimal.Zero, false
	}
	return *c, true
}

func BalanceField(c Category) (Field, bool) {
	switch c {
	case CategoryVacation:
		return FieldVacationBalance, true
	case CategorySick:
		return FieldSickBalance, true
	case CategoryEmergency:
		return FieldEmergencyBalance, true
	}
	return "", false
}

func UsedField(c Category) (Field, bool) {
	switch c {
	case CategoryVacation:
		return FieldVacationUsed, true
	case CategorySick:
		return FieldSickUsed, true
	case CategoryEmergency:
		return FieldEmergencyUsed, true
	}
	return "", false
}

func (r BalanceRecord) Value(f Field) decimal.Decimal {
	switch f {
	case FieldVacationBalance:
		return r.VacationBalance
	case FieldSickBalance:
		return r.SickBalance
	case FieldEmergencyBalance:
		return r.EmergencyBalance
	case FieldInitialVacationCredits:
		return r.InitialVacationCredits
	case FieldInitialSickCredits:
		return r.InitialSickCredits
	case FieldInitialEmergencyCredits:
		return r.InitialEmergencyCredits
	case FieldVacationUsed:
		return r.VacationUsed
	case FieldSickUsed:
		return r.SickUsed
	case FieldEmergencyUsed:
		return r.EmergencyUsed
	}
	return decimal.Zero
}

func (r *BalanceRecord) setValue(f Field, v decimal.Decimal) {
	switch f {
	case FieldVacationBalance:
		r.VacationBalance = v
	case FieldSickBalance:
		r.SickBalance = v
	case FieldEmergencyBalance:
		r.EmergencyBalance = v
	case FieldInitialVacationCredits:
		r.InitialVacationCredits = v
	case FieldInitialSickCredits:
		r.InitialSickCredits = v
	case FieldInitialEmergencyCredits:
		r.InitialEmergencyCredits = v
	case FieldVacationUsed:
		r.VacationUsed = v
	case FieldSickUsed:
		r.SickUsed = v
	case FieldEmergencyUsed:
		r.EmergencyUsed = v
	}
}

type Delta struct {
	Field  Field
	Amount decimal.Decimal
}

// ClampField rounds v to 2 dp and bounds it to [0, ceiling].
func ClampField(f Field, v decimal.Decimal) decimal.Decimal {
	v = v.Round(2)
	if v.IsNegative() {
		return decimal.Zero
	}
	if ceiling, ok := f.Ceiling(); ok && v.GreaterThan(ceiling) {
		return ceiling
	}
	return v
}

// ApplyDeltas returns rec with every delta added and clamped. rec is not modified.
func ApplyDeltas(rec BalanceRecord, deltas ...Delta) (BalanceRecord, error) {
	for _, d := range deltas {
		if !d.Field.Valid() {
			return rec, fmt.Errorf("%w: unknown balance field %q", ErrInvalidArgument, d.Field)
		}
	}
	next := rec
	for _, d := range deltas {
		next.setValue(d.Field, ClampField(d.Field, next.Value(d.Field).Add(d.Amount)))
	}
	return next, nil
}
