package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"stationhr/internal/platform/config"
)

type seedPerson struct {
	FullName string
	HireDate time.Time
}

// demoRoster covers the accrual edge cases: long-serving staff at the
// ceiling, a mid-year hire and a hire on the last day of last year.
func demoRoster(now time.Time) []seedPerson {
	year := now.UTC().Year()
	return []seedPerson{
		{FullName: "Station Chief", HireDate: time.Date(year-12, time.March, 1, 0, 0, 0, 0, time.UTC)},
		{FullName: "Duty Officer", HireDate: time.Date(year-3, time.September, 16, 0, 0, 0, 0, time.UTC)},
		{FullName: "Fire Officer", HireDate: time.Date(year, time.February, 15, 0, 0, 0, 0, time.UTC)},
		{FullName: "Probationary Firefighter", HireDate: time.Date(year-1, time.December, 31, 0, 0, 0, 0, time.UTC)},
	}
}

// Seed loads the demo roster into an empty personnel table when enabled.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if !cfg.SeedDemoPersonnel {
		return nil
	}
	var existing int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM personnel").Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		slog.Info("personnel already present, skipping seed", "count", existing)
		return nil
	}
	for _, p := range demoRoster(time.Now()) {
		if _, err := pool.Exec(ctx, "INSERT INTO personnel (full_name, hire_date) VALUES ($1, $2)", p.FullName, p.HireDate); err != nil {
			return err
		}
	}
	slog.Info("demo personnel seeded")
	return nil
}
