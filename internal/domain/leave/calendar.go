package leave

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateOf truncates t to midnight UTC of its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ProRatedMonthlyAccrual scales rate by the share of the hire month that was
// worked, counting the hire day itself, rounded to 3 dp.
func ProRatedMonthlyAccrual(hireDate time.Time, rate decimal.Decimal) decimal.Decimal {
	hire := DateOf(hireDate)
	if hire.Day() == 1 {
		return rate
	}
	days := DaysInMonth(hire.Year(), hire.Month())
	worked := days - (hire.Day() - 1)
	fraction := decimal.NewFromInt(int64(worked)).Div(decimal.NewFromInt(int64(days)))
	return fraction.Mul(rate).Round(3)
}

// MonthsElapsed counts whole months from one date to another after
// normalising both to UTC midnight. A reference before from yields 0.
func MonthsElapsed(from, asOf time.Time) int {
	start := DateOf(from)
	end := DateOf(asOf)
	if !end.After(start) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// AlreadyAccruedForMonth reports whether the monthly accrual of asOf's month
// has been applied to rec.
func AlreadyAccruedForMonth(rec BalanceRecord, asOf time.Time) bool {
	if rec.AccruedAt.IsZero() {
		return false
	}
	return !StartOfMonth(rec.AccruedAt.UTC()).Before(StartOfMonth(asOf.UTC()))
}

// MonthlyAccrualFor returns what an employee earns for workMonth: the full
// rate when hired before it, the pro-rated share when hired inside it and
// nothing when hired afterwards.
func MonthlyAccrualFor(hireDate, workMonth time.Time, rate decimal.Decimal) (decimal.Decimal, error) {
	if hireDate.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: missing hire date", ErrProration)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative rate %s", ErrProration, rate)
	}
	hire := DateOf(hireDate)
	start := StartOfMonth(workMonth)
	end := start.AddDate(0, 1, 0)
	switch {
	case !hire.Before(end):
		return decimal.Zero, nil
	case hire.Before(start):
		return rate, nil
	default:
		return ProRatedMonthlyAccrual(hire, rate), nil
	}
}

// InitialCredits computes the vacation/sick credit a record for year holds
// when first created as of asOf, capped at ceiling.
func InitialCredits(hireDate time.Time, year int, asOf time.Time, rate, ceiling decimal.Decimal) (decimal.Decimal, error) {
	if hireDate.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: missing hire date", ErrProration)
	}
	ref := referenceDate(year, asOf)
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	hire := DateOf(hireDate)

	var credits decimal.Decimal
	switch {
	case hire.Before(jan1):
		credits = rate.Mul(decimal.NewFromInt(int64(MonthsElapsed(jan1, ref))))
	case !hire.Before(StartOfMonth(ref)):
		credits = decimal.Zero
	default:
		full := monthIndex(ref) - monthIndex(hire) - 1
		credits = ProRatedMonthlyAccrual(hire, rate).Add(rate.Mul(decimal.NewFromInt(int64(full))))
	}
	if credits.GreaterThan(ceiling) {
		credits = ceiling
	}
	return credits, nil
}

// referenceDate bounds asOf to [Jan 1 of year, Jan 1 of year+1].
func referenceDate(year int, asOf time.Time) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	next := jan1.AddDate(1, 0, 0)
	ref := DateOf(asOf)
	if ref.Before(jan1) {
		return jan1
	}
	if ref.After(next) {
		return next
	}
	return ref
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// CalculateDays returns the inclusive calendar day count between start and end.
func CalculateDays(start, end time.Time) (int, error) {
	s, e := DateOf(start), DateOf(end)
	if e.Before(s) {
		return 0, errors.New("end date before start date")
	}
	return int(e.Sub(s).Hours()/24) + 1, nil
}
