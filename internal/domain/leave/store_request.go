package leave

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const requestColumns = `
    id::text, employee_id::text, COALESCE(balance_id::text, ''), leave_type,
    start_date, end_date, num_days, status, approve_for,
    paid_days, unpaid_days, balance_before, balance_after, reason, created_at`

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var req LeaveRequest
	var leaveType, approveFor string
	err := row.Scan(&req.ID, &req.EmployeeID, &req.BalanceID, &leaveType,
		&req.StartDate, &req.EndDate, &req.NumDays, &req.Status, &approveFor,
		&req.PaidDays, &req.UnpaidDays, &req.BalanceBefore, &req.BalanceAfter, &req.Reason, &req.CreatedAt)
	if err != nil {
		return LeaveRequest{}, err
	}
	req.LeaveType = Category(leaveType)
	req.ApproveFor = PayStatus(approveFor)
	return req, nil
}

func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func (s *Store) GetRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	var req LeaveRequest
	err := readRetry(ctx, "get request", func() error {
		var err error
		req, err = scanRequest(s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id = $1
  `, requestID))
		return err
	})
	return req, err
}

// ListRequests returns the employee's requests starting in year; year 0 lists all.
func (s *Store) ListRequests(ctx context.Context, employeeID string, year int) ([]LeaveRequest, error) {
	var out []LeaveRequest
	err := readRetry(ctx, "list requests", func() error {
		rows, err := s.DB.Query(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE employee_id = $1 AND ($2 = 0 OR EXTRACT(YEAR FROM start_date)::int = $2)
    ORDER BY start_date DESC, created_at DESC
  `, employeeID, year)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]LeaveRequest, 0)
		for rows.Next() {
			req, err := scanRequest(rows)
			if err != nil {
				return err
			}
			out = append(out, req)
		}
		return rows.Err()
	})
	return out, err
}

func (t *pgTx) InsertRequest(ctx context.Context, req LeaveRequest) (LeaveRequest, error) {
	out, err := scanRequest(t.tx.QueryRow(ctx, `
    INSERT INTO leave_requests (
      employee_id, balance_id, leave_type, start_date, end_date, num_days, status,
      approve_for, paid_days, unpaid_days, balance_before, balance_after, reason, created_at
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    RETURNING `+requestColumns,
		req.EmployeeID, nullableID(req.BalanceID), string(req.LeaveType), req.StartDate, req.EndDate, req.NumDays, req.Status,
		string(req.ApproveFor), req.PaidDays, req.UnpaidDays, req.BalanceBefore, req.BalanceAfter, req.Reason, req.CreatedAt))
	return out, storeErr("insert request", err)
}

func (t *pgTx) LockRequest(ctx context.Context, requestID string) (LeaveRequest, error) {
	req, err := scanRequest(t.tx.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id = $1
    FOR UPDATE
  `, requestID))
	return req, storeErr("lock request", err)
}

func (t *pgTx) DeleteRequest(ctx context.Context, requestID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM leave_requests WHERE id = $1`, requestID)
	if err != nil {
		return storeErr("delete request", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
