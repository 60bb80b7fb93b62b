package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stationhr/internal/domain/leave"
	"stationhr/internal/domain/leave/leavetest"
	"stationhr/internal/platform/metrics"
)

type recordedExec struct {
	sql  string
	args []any
}

type fakeDB struct {
	inserted []any
	execs    []recordedExec
}

type idRow struct{ id string }

func (r idRow) Scan(dest ...any) error {
	*(dest[0].(*string)) = r.id
	return nil
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.inserted = append(f.inserted, args...)
	return idRow{id: "run-1"}
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, recordedExec{sql: sql, args: args})
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("not supported")
}

func newJobs(t *testing.T, now time.Time) (*Service, *leavetest.Memory, *fakeDB, *metrics.Collector) {
	t.Helper()
	mem := leavetest.NewMemory()
	db := &fakeDB{}
	collector := metrics.New()
	svc := leave.NewService(mem, leave.Options{Now: func() time.Time { return now }})
	return New(db, svc, collector), mem, db, collector
}

func TestMonthlyAccrualRecordsCompletedRun(t *testing.T) {
	s, mem, db, collector := newJobs(t, time.Date(2025, time.June, 1, 0, 5, 0, 0, time.UTC))
	mem.AddEmployee(leave.Employee{FullName: "A", HireDate: time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC), Active: true})

	summary, err := s.MonthlyAccrual(context.Background(), leave.RunOptions{})
	require.NoError(t, err)
	assert.True(t, summary.Success)

	assert.Equal(t, []any{leave.JobMonthlyAccrual, StatusRunning}, db.inserted)
	require.Len(t, db.execs, 1)
	assert.Equal(t, StatusCompleted, db.execs[0].args[0])
	assert.Contains(t, string(db.execs[0].args[1].([]byte)), `"total":1`)
	assert.Equal(t, "run-1", db.execs[0].args[2])
	assert.Equal(t, uint64(1), collector.Snapshot()["accrualRuns"])
}

func TestAnnualResetOffDayIsSkipped(t *testing.T) {
	s, _, db, collector := newJobs(t, time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC))

	summary, err := s.AnnualReset(context.Background(), leave.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, leave.ReasonNotJanuaryFirst, summary.Reason)
	require.Len(t, db.execs, 1)
	assert.Equal(t, StatusSkipped, db.execs[0].args[0])
	assert.Equal(t, uint64(1), collector.Snapshot()["skippedRuns"])
}

func TestFailedRunIsRecorded(t *testing.T) {
	s, mem, db, collector := newJobs(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	mem.ListEmployeesErr = errors.New("database unavailable")

	_, err := s.MonthlyAccrual(context.Background(), leave.RunOptions{})
	require.Error(t, err)
	require.Len(t, db.execs, 1)
	assert.Equal(t, StatusFailed, db.execs[0].args[0])
	assert.Contains(t, string(db.execs[0].args[1].([]byte)), "database unavailable")
	assert.Equal(t, uint64(1), collector.Snapshot()["failedRuns"])
}

func TestRunWithoutDatabase(t *testing.T) {
	mem := leavetest.NewMemory()
	svc := leave.NewService(mem, leave.Options{Now: func() time.Time { return time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC) }})
	s := New(nil, svc, nil)

	summary, err := s.AnnualReset(context.Background(), leave.RunOptions{})
	require.NoError(t, err)
	assert.True(t, summary.Success)
}
