package leave

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const employeeColumns = `id::text, full_name, hire_date, status = 'active'`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	if err := row.Scan(&e.ID, &e.FullName, &e.HireDate, &e.Active); err != nil {
		return Employee{}, err
	}
	e.HireDate = DateOf(e.HireDate)
	return e, nil
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	var e Employee
	err := readRetry(ctx, "get employee", func() error {
		var err error
		e, err = scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM personnel
    WHERE id = $1
  `, employeeID))
		return err
	})
	return e, err
}

func (s *Store) ListActiveEmployees(ctx context.Context) ([]Employee, error) {
	var out []Employee
	err := readRetry(ctx, "list employees", func() error {
		rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM personnel
    WHERE status = 'active'
    ORDER BY hire_date, id
  `)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Employee, 0)
		for rows.Next() {
			e, err := scanEmployee(rows)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}

func (t *pgTx) Employee(ctx context.Context, employeeID string) (Employee, error) {
	e, err := scanEmployee(t.tx.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM personnel
    WHERE id = $1
  `, employeeID))
	return e, storeErr("employee", err)
}
