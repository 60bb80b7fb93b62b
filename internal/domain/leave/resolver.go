package leave

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SubmitInput struct {
	EmployeeID    string
	LeaveType     string
	StartDate     time.Time
	EndDate       time.Time
	Reason        string
	ConfirmUnpaid bool
	// AsOf replaces the submission time; zero means now.
	AsOf time.Time
}

type SubmitResult struct {
	Request      LeaveRequest        `json:"request"`
	NumDays      int                 `json:"numDays"`
	PayStatus    PayStatus           `json:"payStatus"`
	BalanceAfter decimal.NullDecimal `json:"balanceAfter"`
}

func validateSubmission(in SubmitInput) (Category, int, error) {
	verr := &ValidationError{}
	if strings.TrimSpace(in.EmployeeID) == "" {
		verr.add("employeeId", "is required")
	}
	category, ok := ParseCategory(strings.TrimSpace(in.LeaveType))
	if !ok {
		verr.add("leaveType", "must be one of "+strings.Join(CategoryNames(), ", "))
	}
	if in.StartDate.IsZero() {
		verr.add("startDate", "is required")
	}
	if in.EndDate.IsZero() {
		verr.add("endDate", "is required")
	}
	if err := verr.orNil(); err != nil {
		return "", 0, err
	}
	days, err := CalculateDays(in.StartDate, in.EndDate)
	if err != nil || days <= 0 {
		verr.add("endDate", "must be on or after startDate")
		return "", 0, verr
	}
	return category, days, nil
}

// SubmitRequest files a leave request. A request the balance covers is paid
// and deducted in full; otherwise the caller gets a
// *ConfirmationRequiredError and, once confirmed, the request is filed
// entirely without pay and the balance is left untouched.
func (s *Service) SubmitRequest(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	category, numDays, err := validateSubmission(in)
	if err != nil {
		return SubmitResult{}, err
	}
	asOf := s.asOf(in.AsOf)
	days := decimal.NewFromInt(int64(numDays))

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	var result SubmitResult
	err = s.Store.WithTx(ctx, func(tx TxStore) error {
		emp, err := tx.Employee(ctx, in.EmployeeID)
		if err != nil {
			return err
		}
		req := LeaveRequest{
			EmployeeID: emp.ID,
			LeaveType:  category,
			StartDate:  DateOf(in.StartDate),
			EndDate:    DateOf(in.EndDate),
			NumDays:    numDays,
			Status:     StatusPending,
			Reason:     strings.TrimSpace(in.Reason),
			CreatedAt:  asOf,
		}

		balanceField, tracked := BalanceField(category)
		if !tracked {
			req.ApproveFor = WithPay
			req.PaidDays = numDays
			return insertResult(ctx, tx, req, &result)
		}
		usedField, _ := UsedField(category)

		rec, err := getOrCreateTx(ctx, tx, emp, asOf.Year(), asOf, true)
		if err != nil {
			return err
		}
		req.BalanceID = rec.ID
		before := rec.Value(balanceField)
		req.BalanceBefore = decimal.NewNullDecimal(before)

		if before.GreaterThanOrEqual(days) {
			next, err := saveDeltas(ctx, tx, rec, asOf, false,
				Delta{Field: balanceField, Amount: days.Neg()},
				Delta{Field: usedField, Amount: days})
			if err != nil {
				return err
			}
			req.ApproveFor = WithPay
			req.PaidDays = numDays
			req.BalanceAfter = decimal.NewNullDecimal(next.Value(balanceField))
			return insertResult(ctx, tx, req, &result)
		}

		if !in.ConfirmUnpaid {
			return &ConfirmationRequiredError{LeaveType: category, Balance: before, Requested: days}
		}
		req.ApproveFor = WithoutPay
		req.UnpaidDays = numDays
		req.BalanceAfter = decimal.NewNullDecimal(before)
		return insertResult(ctx, tx, req, &result)
	})
	if err != nil {
		return SubmitResult{}, err
	}
	return result, nil
}

func insertResult(ctx context.Context, tx TxStore, req LeaveRequest, result *SubmitResult) error {
	saved, err := tx.InsertRequest(ctx, req)
	if err != nil {
		return err
	}
	*result = SubmitResult{
		Request:      saved,
		NumDays:      saved.NumDays,
		PayStatus:    saved.ApproveFor,
		BalanceAfter: saved.BalanceAfter,
	}
	return nil
}

// DeleteRequest removes a pending request owned by actorEmployeeID and
// gives back any days deducted when it was filed.
func (s *Service) DeleteRequest(ctx context.Context, requestID, actorEmployeeID string) error {
	if strings.TrimSpace(requestID) == "" {
		return &ValidationError{Issues: []FieldIssue{{Field: "requestId", Reason: "is required"}}}
	}
	at := s.now().UTC()

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	return s.Store.WithTx(ctx, func(tx TxStore) error {
		req, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.EmployeeID != actorEmployeeID {
			return ErrForbidden
		}
		if req.Status != StatusPending {
			return ErrInvalidState
		}

		balanceField, tracked := BalanceField(req.LeaveType)
		if req.ApproveFor == WithPay && tracked && req.BalanceID != "" {
			usedField, _ := UsedField(req.LeaveType)
			rec, err := tx.LockBalance(ctx, req.BalanceID)
			if err != nil {
				return err
			}
			days := decimal.NewFromInt(int64(req.NumDays))
			if _, err := saveDeltas(ctx, tx, rec, at, false,
				Delta{Field: balanceField, Amount: days},
				Delta{Field: usedField, Amount: days.Neg()}); err != nil {
				return err
			}
		}
		return tx.DeleteRequest(ctx, requestID)
	})
}
