package leave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stationhr/internal/domain/leave"
	"stationhr/internal/domain/leave/leavetest"
)

var june10 = date(2025, time.June, 10)

func submit(emp leave.Employee, leaveType string, from, to time.Time, confirm bool) leave.SubmitInput {
	return leave.SubmitInput{
		EmployeeID:    emp.ID,
		LeaveType:     leaveType,
		StartDate:     from,
		EndDate:       to,
		ConfirmUnpaid: confirm,
		AsOf:          june10,
	}
}

func TestSubmitRequestPaidDeductsBalance(t *testing.T) {
	mem := leavetest.NewMemory()
	emp := hire(mem, "Rosa Diaz", date(2016, time.May, 2))
	rec := record(mem, emp, 2025, "10", "4", "5", date(2025, time.June, 1))
	svc := newService(mem, june10)

	res, err := svc.SubmitRequest(context.Background(), submit(emp, "Vacation", date(2025, time.June, 16), date(2025, time.June, 18), false))
	require.NoError(t, err)
	assert.Equal(t, 3, res.NumDays)
	assert.Equal(t, leave.WithPay, res.PayStatus)
	assert.Equal(t, "7.00", res.BalanceAfter.Decimal.StringFixed(2))
	assert.Equal(t, leave.StatusPending, res.Request.Status)
	assert.Equal(t, rec.ID, res.Request.BalanceID)
	assert.Equal(t, 3, res.Request.PaidDays)
	assert.Equal(t, "10.00", res.Request.BalanceBefore.Decimal.StringFixed(2))

	stored, _ := mem.Balance(emp.ID, 2025)
	assert.Equal(t, "7.00", stored.VacationBalance.StringFixed(2))
	assert.Equal(t, "3.00", stored.VacationUsed.StringFixed(2))
	assert.Equal(t, "4.00", stored.SickBalance.StringFixed(2))
}

func TestSubmitRequestExactBalanceIsPaid(t *testing.T) {
	mem := leavetest.NewMemory()
	emp := hire(mem, "Rosa Diaz", date(2016, time.May, 2))
	record(mem, emp, 2025, "10", "4", "5", date(2025, time.June, 1))
	svc := newService(mem, june10)

	res, err := svc.SubmitRequest(context.Background(), submit(emp, "Emergency", date(2025, time.June, 11), date(2025, time.June, 15), false))
	require.NoError(t, err)
	assert.Equal(t, leave.WithPay, res.PayStatus)
	assert.True(t, res.BalanceAfter.Decimal.IsZero())

	stored, _ := mem.Balance(emp.ID, 2025)
	assert.Equal(t, "5.00", stored.EmergencyUsed.StringFixed(2))
}

func TestSubmitRequestInsufficientNeedsConfirmation(t *testing.T) {
	mem := leavetest.NewMemory()
	emp := hire(mem, "Rosa Diaz", date(2016, time.May, 2))
	record(mem, emp, 2025, "10", "2", "5", date(2025, time.June, 1))
	svc := newService(mem, june10)

	_, err := svc.SubmitRequest(context.Background(), submit(emp, "Sick", date(2025, time.June, 16), date(2025, time.June, 18), false))
	var confirm *leave.ConfirmationRequiredError
	require.ErrorAs(t, err, &confirm)
	assert.Equal(t, leave.CategorySick, confirm.LeaveType)
	assert.Equal(t, "2.00", confirm.Balance.StringFixed(2))
	assert.Equal(t, "3", confirm.Requested.String())
	assert.Equal(t, 0, mem.RequestCount())

	stored, _ := mem.Balance(emp.ID, 2025)
	assert.Equal(t, "2.00", stored.SickBalance.StringFixed(2))
}

func TestSubmitRequestConfirmedIsWithoutPay(t *testing.T) {
	mem := leavetest.NewMemory()
	emp := hire(mem, "Rosa Diaz", date(2016, time.May, 2))
	record(mem, emp, 2025, "10", "2", "5", date(2025, time.June, 1))
	svc := newService(mem, june10)

	res, err := svc.SubmitRequest(context.Background(), submit(emp, "Sick", date(2025, time.June, 16), date(2025, time.June, 18), true))
	require.NoError(t, err)
	assert.Equal(t, leave.WithoutPay, res.PayStatus)
	assert.Equal(t, 3, res.Request.UnpaidDays)
	assert.Equal(t, 0, res.Request.PaidDays)
	assert.Equal(t, "2.00", res.BalanceAfter.Decimal.StringFixed(2))

	stored, _ := mem.Balance(emp.ID, 2025)
	assert.Equal(t, "2.00", stored.SickBalance.StringFixed(2))
	assert.True(t, stored.SickUsed.IsZero())
}

func TestSubmitRequestUntrackedCategory(t *testing.T) {
	mem := leavetest.NewMemory()
	emp := hire(mem, "Rosa Diaz", date(2016, time.May, 2))
	svc := newService(mem, june10)

	res, err := svc.SubmitRequest(context.Background(), submit(emp, "Maternity", date(2025, time.July, 1), date(2025, time.October, 28), false))
	require.NoError(t, err)
	assert.Equal(t, leave.WithPay, res.PayStatus)
	assert.Equal(t, 120, res.NumDays)
	assert.Empty(t, res.Request.BalanceID)
	assert.False(t, res.Request.BalanceBefore.Valid)

	_, ok := mem.Balance(emp.ID, 2025)
	assert.False(t, ok, "untracked leave does not open a record")
}

func TestSubmitRequestOpensRecordLazily(t *testing.T) {
	mem := leavetest.NewMemory()
	emp := hire(mem, "New Hire", date(2025, time.January, 1))
	svc := newService(mem, june10)

	in := submit(emp, "Vacation", date(2025, time.March, 12), date(2025, time.March, 13), false)
	in.AsOf = date(2025, time.March, 10)
	res, err := svc.SubmitRequest(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, leave.WithPay, res.PayStatus)
	assert.Equal(t, "0.50", res.BalanceAfter.Decimal.StringFixed(2))
}

func TestSubmitRequestValidation(t *testing.T) {
	mem := leavetest.NewMemory()
	emp := hire(mem, "Rosa Diaz", date(2016, time.May, 2))
	svc := newService(mem, june10)
	ctx := context.Background()

	_, err := svc.SubmitRequest(ctx, submit(emp, "Holiday", date(2025, time.June, 16), date(2025, time.June, 18), false))
	var verr *leave.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "leaveType", verr.Issues[0].Field)

	_, err = svc.SubmitRequest(ctx, submit(emp, "Vacation", date(2025, time.June, 18), date(2025, time.June, 16), false))
	assert.ErrorIs(t, err, leave.ErrValidation)

	_, err = svc.SubmitRequest(ctx, submit(leave.Employee{}, "Vacation", time.Time{}, time.Time{}, false))
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 3)

	_, err = svc.SubmitRequest(ctx, submit(leave.Employee{ID: "ghost"}, "Vacation", date(2025, time.June, 16), date(2025, time.June, 16), false))
	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestConcurrentSubmissionsNeverOverdraw(t *testing.T) {
	mem := leavetest.NewMemory()
	emp := hire(mem, "Rosa Diaz", date(2016, time.May, 2))
	record(mem, emp, 2025, "10", "4", "5", date(2025, time.June, 1))
	svc := newService(mem, june10)

	var (
		wg               sync.WaitGroup
		mu               sync.Mutex
		paid, confirmReq int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitRequest(context.Background(), submit(emp, "Vacation", date(2025, time.July, 1), date(2025, time.July, 2), false))
			mu.Lock()
			defer mu.Unlock()
			var confirm *leave.ConfirmationRequiredError
			switch {
			case err == nil:
				paid++
			case errors.As(err, &confirm):
				confirmReq++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, paid)
	assert.Equal(t, 3, confirmReq)
	stored, _ := mem.Balance(emp.ID, 2025)
	assert.True(t, stored.VacationBalance.IsZero())
	assert.Equal(t, "10.00", stored.VacationUsed.StringFixed(2))
}

func TestDeleteRequestRestoresPaidDays(t *testing.T) {
	mem := leavetest.NewMemory()
	emp := hire(mem, "Rosa Diaz", date(2016, time.May, 2))
	record(mem, emp, 2025, "10", "4", "5", date(2025, time.June, 1))
	svc := newService(mem, june10)
	ctx := context.Background()

	res, err := svc.SubmitRequest(ctx, submit(emp, "Vacation", date(2025, time.June, 16), date(2025, time.June, 18), false))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRequest(ctx, res.Request.ID, emp.ID))
	stored, _ := mem.Balance(emp.ID, 2025)
	assert.Equal(t, "10.00", stored.VacationBalance.StringFixed(2))
	assert.True(t, stored.VacationUsed.IsZero())
	_, ok := mem.Request(res.Request.ID)
	assert.False(t, ok)
}

func TestDeleteRequestUnpaidLeavesBalance(t *testing.T) {
	mem := leavetest.NewMemory()
	emp := hire(mem, "Rosa Diaz", date(2016, time.May, 2))
	record(mem, emp, 2025, "1", "4", "5", date(2025, time.June, 1))
	svc := newService(mem, june10)
	ctx := context.Background()

	res, err := svc.SubmitRequest(ctx, submit(emp, "Vacation", date(2025, time.June, 16), date(2025, time.June, 18), true))
	require.NoError(t, err)
	require.Equal(t, leave.WithoutPay, res.PayStatus)

	require.NoError(t, svc.DeleteRequest(ctx, res.Request.ID, emp.ID))
	stored, _ := mem.Balance(emp.ID, 2025)
	assert.Equal(t, "1.00", stored.VacationBalance.StringFixed(2))
	assert.True(t, stored.VacationUsed.IsZero())
}

func TestDeleteRequestRules(t *testing.T) {
	mem := leavetest.NewMemory()
	emp := hire(mem, "Rosa Diaz", date(2016, time.May, 2))
	other := hire(mem, "Gina Linetti", date(2017, time.May, 2))
	approved := mem.PutRequest(leave.LeaveRequest{
		EmployeeID: emp.ID,
		LeaveType:  leave.CategoryVacation,
		StartDate:  date(2025, time.May, 5),
		EndDate:    date(2025, time.May, 6),
		NumDays:    2,
		Status:     leave.StatusApproved,
		ApproveFor: leave.WithPay,
		PaidDays:   2,
	})
	svc := newService(mem, june10)
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteRequest(ctx, approved.ID, emp.ID), leave.ErrInvalidState)
	assert.ErrorIs(t, svc.DeleteRequest(ctx, approved.ID, other.ID), leave.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteRequest(ctx, "missing", emp.ID), leave.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteRequest(ctx, " ", emp.ID), leave.ErrValidation)

	_, ok := mem.Request(approved.ID)
	assert.True(t, ok)
}
