package leave

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2025, time.February, 28},
		{2000, time.February, 29},
		{2100, time.February, 28},
		{2025, time.April, 30},
		{2025, time.December, 31},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DaysInMonth(tc.year, tc.month), "%d-%02d", tc.year, tc.month)
	}
}

func TestProRatedMonthlyAccrual(t *testing.T) {
	cases := []struct {
		hire time.Time
		want string
	}{
		{day(2025, time.December, 31), "0.040"},
		{day(2025, time.December, 15), "0.685"},
		{day(2025, time.December, 1), "1.250"},
		{day(2024, time.February, 15), "0.647"},
		{day(2024, time.February, 29), "0.043"},
	}
	for _, tc := range cases {
		got := ProRatedMonthlyAccrual(tc.hire, MonthlyAccrualRate)
		assert.Equal(t, tc.want, got.StringFixed(3), tc.hire.Format("2006-01-02"))
	}
}

func TestProRatedMonthlyAccrualIgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2025, time.December, 15, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "0.685", ProRatedMonthlyAccrual(late, MonthlyAccrualRate).StringFixed(3))
}

func TestMonthsElapsed(t *testing.T) {
	assert.Equal(t, 0, MonthsElapsed(day(2025, time.January, 31), day(2025, time.February, 28)))
	assert.Equal(t, 1, MonthsElapsed(day(2025, time.January, 31), day(2025, time.March, 1)))
	assert.Equal(t, 1, MonthsElapsed(day(2025, time.January, 15), day(2025, time.February, 15)))
	assert.Equal(t, 0, MonthsElapsed(day(2025, time.January, 15), day(2025, time.February, 14)))
	assert.Equal(t, 12, MonthsElapsed(day(2025, time.January, 1), day(2026, time.January, 1)))
	assert.Equal(t, 0, MonthsElapsed(day(2025, time.March, 1), day(2025, time.March, 1)))
	assert.Equal(t, 0, MonthsElapsed(day(2025, time.March, 1), day(2025, time.January, 1)), "reference before start")
}

func TestMonthsElapsedDaySweep(t *testing.T) {
	for d := 1; d <= 28; d++ {
		from := day(2025, time.January, d)
		assert.Equal(t, 2, MonthsElapsed(from, day(2025, time.March, d)), "day %d", d)
		assert.Equal(t, 1, MonthsElapsed(from, day(2025, time.March, d).AddDate(0, 0, -1)), "day %d minus one", d)
	}
}

func TestMonthsElapsedWholeMonthAgainstFixedReference(t *testing.T) {
	ref := day(2025, time.March, 1)
	for d := 1; d <= 31; d++ {
		want := 1
		if d == 1 {
			want = 2
		}
		assert.Equal(t, want, MonthsElapsed(day(2025, time.January, d), ref), "hired January %d", d)
	}
}

func TestMonthsElapsedNormalisesToUTC(t *testing.T) {
	manila := time.FixedZone("UTC+8", 8*60*60)
	// 2025-02-01 02:00 in UTC+8 is still January 31st in UTC.
	asOf := time.Date(2025, time.February, 1, 2, 0, 0, 0, manila)
	assert.Equal(t, 0, MonthsElapsed(day(2025, time.January, 1), asOf))
	assert.Equal(t, 1, MonthsElapsed(day(2025, time.January, 1), asOf.Add(8*time.Hour)))
}

func TestAlreadyAccruedForMonth(t *testing.T) {
	asOf := day(2026, time.January, 1)
	assert.False(t, AlreadyAccruedForMonth(BalanceRecord{}, asOf))
	assert.False(t, AlreadyAccruedForMonth(BalanceRecord{AccruedAt: day(2025, time.December, 1)}, asOf))
	assert.True(t, AlreadyAccruedForMonth(BalanceRecord{AccruedAt: day(2026, time.January, 1)}, asOf))
	assert.True(t, AlreadyAccruedForMonth(BalanceRecord{AccruedAt: day(2026, time.January, 1)}, day(2026, time.January, 20)))
}

func TestMonthlyAccrualFor(t *testing.T) {
	december := day(2025, time.December, 1)

	got, err := MonthlyAccrualFor(day(2020, time.June, 9), december, MonthlyAccrualRate)
	require.NoError(t, err)
	assert.True(t, got.Equal(MonthlyAccrualRate))

	got, err = MonthlyAccrualFor(day(2025, time.December, 31), december, MonthlyAccrualRate)
	require.NoError(t, err)
	assert.Equal(t, "0.040", got.StringFixed(3))

	got, err = MonthlyAccrualFor(day(2026, time.January, 1), december, MonthlyAccrualRate)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = MonthlyAccrualFor(time.Time{}, december, MonthlyAccrualRate)
	assert.ErrorIs(t, err, ErrProration)

	_, err = MonthlyAccrualFor(day(2020, time.June, 9), december, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrProration)
}

func TestInitialCredits(t *testing.T) {
	cases := []struct {
		name string
		hire time.Time
		year int
		asOf time.Time
		want string
	}{
		{"hired years ago, mid year", day(2020, time.March, 3), 2025, day(2025, time.June, 10), "6.250"},
		{"hired years ago, on Jan 1", day(2020, time.March, 3), 2025, day(2025, time.January, 1), "0.000"},
		{"closed year is capped", day(2020, time.March, 3), 2025, day(2026, time.March, 1), "15.000"},
		{"hired in year", day(2025, time.March, 16), 2025, day(2025, time.June, 1), "3.145"},
		{"hired in reference month", day(2025, time.June, 1), 2025, day(2025, time.June, 20), "0.000"},
		{"hired in the future", day(2025, time.August, 1), 2025, day(2025, time.June, 20), "0.000"},
		{"hired on Dec 31, closed year", day(2025, time.December, 31), 2025, day(2026, time.January, 1), "0.040"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := InitialCredits(tc.hire, tc.year, tc.asOf, MonthlyAccrualRate, VacationCeiling)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.StringFixed(3))
		})
	}

	_, err := InitialCredits(time.Time{}, 2025, day(2025, time.June, 1), MonthlyAccrualRate, VacationCeiling)
	assert.ErrorIs(t, err, ErrProration)
}

func TestCalculateDays(t *testing.T) {
	n, err := CalculateDays(day(2025, time.May, 5), day(2025, time.May, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = CalculateDays(day(2025, time.February, 27), day(2025, time.March, 2))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = CalculateDays(day(2025, time.May, 5), day(2025, time.May, 4))
	assert.Error(t, err)
}

func TestClampField(t *testing.T) {
	assert.Equal(t, "0.00", ClampField(FieldVacationBalance, decimal.RequireFromString("-3")).StringFixed(2))
	assert.Equal(t, "15.00", ClampField(FieldSickBalance, decimal.RequireFromString("15.8")).StringFixed(2))
	assert.Equal(t, "5.00", ClampField(FieldEmergencyBalance, decimal.RequireFromString("6")).StringFixed(2))
	assert.Equal(t, "0.04", ClampField(FieldVacationBalance, decimal.RequireFromString("0.040")).StringFixed(2))
	assert.Equal(t, "40.00", ClampField(FieldVacationUsed, decimal.RequireFromString("40")).StringFixed(2), "used counters have no ceiling")
}

func TestApplyDeltas(t *testing.T) {
	rec := BalanceRecord{VacationBalance: decimal.RequireFromString("14.5")}

	next, err := ApplyDeltas(rec,
		Delta{Field: FieldVacationBalance, Amount: MonthlyAccrualRate},
		Delta{Field: FieldVacationUsed, Amount: decimal.NewFromInt(2)})
	require.NoError(t, err)
	assert.Equal(t, "15.00", next.VacationBalance.StringFixed(2))
	assert.Equal(t, "2.00", next.VacationUsed.StringFixed(2))
	assert.Equal(t, "14.50", rec.VacationBalance.StringFixed(2), "input is not modified")

	_, err = ApplyDeltas(rec, Delta{Field: "overtime_balance", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
