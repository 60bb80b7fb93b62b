package leave

import (
	"context"
	"time"
)

type Options struct {
	StoreTimeout time.Duration
	Concurrency  int
	Now          func() time.Time
}

type Service struct {
	Store    StoreAPI
	Balances *Balances

	storeTimeout time.Duration
	concurrency  int
	now          func() time.Time
}

func NewService(store StoreAPI, opts Options) *Service {
	s := &Service{
		Store:        store,
		Balances:     NewBalances(store),
		storeTimeout: opts.StoreTimeout,
		concurrency:  opts.Concurrency,
		now:          opts.Now,
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = 5 * time.Second
	}
	if s.concurrency <= 0 {
		s.concurrency = 1
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// asOf returns override, or the current time when override is zero.
func (s *Service) asOf(override time.Time) time.Time {
	if override.IsZero() {
		return s.now().UTC()
	}
	return override.UTC()
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *Service) GetBalance(ctx context.Context, employeeID string, year int, asOf time.Time) (BalanceRecord, error) {
	at := s.asOf(asOf)
	if year == 0 {
		year = at.Year()
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.Balances.GetOrCreate(ctx, employeeID, year, at)
}

func (s *Service) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.Store.GetEmployee(ctx, employeeID)
}

func (s *Service) ListRequests(ctx context.Context, employeeID string, year int) ([]LeaveRequest, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.Store.ListRequests(ctx, employeeID, year)
}
