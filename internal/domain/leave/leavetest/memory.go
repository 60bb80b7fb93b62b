// Package leavetest provides an in-memory leave.StoreAPI for tests and local runs.
package leavetest

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"stationhr/internal/domain/leave"
)

// Memory keeps all rows in maps. WithTx holds a single mutex for the whole
// transaction, so transactions are serialised, and restores the previous
// state when fn fails.
type Memory struct {
	mu        sync.Mutex
	employees map[string]leave.Employee
	balances  map[string]leave.BalanceRecord
	requests  map[string]leave.LeaveRequest

	failBalance map[string]error

	// ListEmployeesErr and ListBalancesErr make the batch listing calls fail.
	ListEmployeesErr error
	ListBalancesErr  error
}

func NewMemory() *Memory {
	return &Memory{
		employees:   make(map[string]leave.Employee),
		balances:    make(map[string]leave.BalanceRecord),
		requests:    make(map[string]leave.LeaveRequest),
		failBalance: make(map[string]error),
	}
}

func (m *Memory) AddEmployee(e leave.Employee) leave.Employee {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.HireDate = leave.DateOf(e.HireDate)
	m.employees[e.ID] = e
	return e
}

func (m *Memory) PutBalance(rec leave.BalanceRecord) leave.BalanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.balances[rec.ID] = rec
	return rec
}

func (m *Memory) PutRequest(req leave.LeaveRequest) leave.LeaveRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	m.requests[req.ID] = req
	return req
}

func (m *Memory) Balance(employeeID string, year int) (leave.BalanceRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.balanceFor(employeeID, year)
	return rec, err == nil
}

func (m *Memory) Request(requestID string) (leave.LeaveRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	return req, ok
}

func (m *Memory) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// FailBalanceFor makes every balance access of the employee return err.
func (m *Memory) FailBalanceFor(employeeID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failBalance[employeeID] = err
}

func (m *Memory) WithTx(ctx context.Context, fn func(tx leave.TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return &leave.StoreError{Op: "begin", Err: err}
	}

	balances := make(map[string]leave.BalanceRecord, len(m.balances))
	for k, v := range m.balances {
		balances[k] = v
	}
	requests := make(map[string]leave.LeaveRequest, len(m.requests))
	for k, v := range m.requests {
		requests[k] = v
	}

	if err := fn(&memTx{m: m}); err != nil {
		m.balances = balances
		m.requests = requests
		return err
	}
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, employeeID string) (leave.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[employeeID]
	if !ok {
		return leave.Employee{}, leave.ErrNotFound
	}
	return e, nil
}

func (m *Memory) ListActiveEmployees(_ context.Context) ([]leave.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListEmployeesErr != nil {
		return nil, &leave.StoreError{Op: "list employees", Err: m.ListEmployeesErr}
	}
	out := make([]leave.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		if e.Active {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HireDate.Equal(out[j].HireDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].HireDate.Before(out[j].HireDate)
	})
	return out, nil
}

func (m *Memory) FindBalance(_ context.Context, employeeID string, year int) (leave.BalanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceFor(employeeID, year)
}

func (m *Memory) ListBalancesForYear(_ context.Context, year int) ([]leave.BalanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListBalancesErr != nil {
		return nil, &leave.StoreError{Op: "list balances", Err: m.ListBalancesErr}
	}
	out := make([]leave.BalanceRecord, 0)
	for _, rec := range m.balances {
		if rec.Year == year {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (m *Memory) GetRequest(_ context.Context, requestID string) (leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrNotFound
	}
	return req, nil
}

func (m *Memory) ListRequests(_ context.Context, employeeID string, year int) ([]leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]leave.LeaveRequest, 0)
	for _, req := range m.requests {
		if req.EmployeeID != employeeID {
			continue
		}
		if year != 0 && req.StartDate.Year() != year {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].StartDate.After(out[j].StartDate)
	})
	return out, nil
}

func (m *Memory) balanceFor(employeeID string, year int) (leave.BalanceRecord, error) {
	if err := m.failBalance[employeeID]; err != nil {
		return leave.BalanceRecord{}, &leave.StoreError{Op: "balance", Err: err}
	}
	for _, rec := range m.balances {
		if rec.EmployeeID == employeeID && rec.Year == year {
			return rec, nil
		}
	}
	return leave.BalanceRecord{}, leave.ErrNotFound
}

// memTx runs with Memory.mu already held.
type memTx struct {
	m *Memory
}

func (t *memTx) Employee(_ context.Context, employeeID string) (leave.Employee, error) {
	e, ok := t.m.employees[employeeID]
	if !ok {
		return leave.Employee{}, leave.ErrNotFound
	}
	return e, nil
}

func (t *memTx) BalanceFor(_ context.Context, employeeID string, year int) (leave.BalanceRecord, error) {
	return t.m.balanceFor(employeeID, year)
}

func (t *memTx) LockBalance(_ context.Context, balanceID string) (leave.BalanceRecord, error) {
	rec, ok := t.m.balances[balanceID]
	if !ok {
		return leave.BalanceRecord{}, leave.ErrNotFound
	}
	if err := t.m.failBalance[rec.EmployeeID]; err != nil {
		return leave.BalanceRecord{}, &leave.StoreError{Op: "lock balance", Err: err}
	}
	return rec, nil
}

func (t *memTx) LockBalanceFor(_ context.Context, employeeID string, year int) (leave.BalanceRecord, error) {
	return t.m.balanceFor(employeeID, year)
}

func (t *memTx) InsertBalance(_ context.Context, rec leave.BalanceRecord) error {
	if _, err := t.m.balanceFor(rec.EmployeeID, rec.Year); err == nil {
		return nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	t.m.balances[rec.ID] = rec
	return nil
}

func (t *memTx) SaveBalance(_ context.Context, rec leave.BalanceRecord) error {
	if _, ok := t.m.balances[rec.ID]; !ok {
		return leave.ErrNotFound
	}
	t.m.balances[rec.ID] = rec
	return nil
}

func (t *memTx) InsertRequest(_ context.Context, req leave.LeaveRequest) (leave.LeaveRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	t.m.requests[req.ID] = req
	return req, nil
}

func (t *memTx) LockRequest(_ context.Context, requestID string) (leave.LeaveRequest, error) {
	req, ok := t.m.requests[requestID]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrNotFound
	}
	return req, nil
}

func (t *memTx) DeleteRequest(_ context.Context, requestID string) error {
	if _, ok := t.m.requests[requestID]; !ok {
		return leave.ErrNotFound
	}
	delete(t.m.requests, requestID)
	return nil
}
