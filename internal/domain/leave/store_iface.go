package leave

import (
	"context"
)

// StoreAPI is the persistence contract of the leave engine. Reads outside a
// transaction may be retried; every balance mutation goes through WithTx.
type StoreAPI interface {
	WithTx(ctx context.Context, fn func(tx TxStore) error) error
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)
	ListActiveEmployees(ctx context.Context) ([]Employee, error)
	FindBalance(ctx context.Context, employeeID string, year int) (BalanceRecord, error)
	ListBalancesForYear(ctx context.Context, year int) ([]BalanceRecord, error)
	GetRequest(ctx context.Context, requestID string) (LeaveRequest, error)
	ListRequests(ctx context.Context, employeeID string, year int) ([]LeaveRequest, error)
}

// TxStore runs inside one transaction. Lock* methods hold the row until the
// transaction ends.
type TxStore interface {
	Employee(ctx context.Context, employeeID string) (Employee, error)
	BalanceFor(ctx context.Context, employeeID string, year int) (BalanceRecord, error)
	LockBalance(ctx context.Context, balanceID string) (BalanceRecord, error)
	LockBalanceFor(ctx context.Context, employeeID string, year int) (BalanceRecord, error)
	InsertBalance(ctx context.Context, rec BalanceRecord) error
	SaveBalance(ctx context.Context, rec BalanceRecord) error
	InsertRequest(ctx context.Context, req LeaveRequest) (LeaveRequest, error)
	LockRequest(ctx context.Context, requestID string) (LeaveRequest, error)
	DeleteRequest(ctx context.Context, requestID string) error
}
