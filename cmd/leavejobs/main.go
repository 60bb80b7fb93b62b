// Command leavejobs runs a leave batch job once and exits.
//
//	leavejobs monthly-accrual [-as-of 2025-02-01] [-force]
//	leavejobs annual-reset [-as-of 2025-01-01]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stationhr/internal/domain/leave"
	"stationhr/internal/platform/config"
	"stationhr/internal/platform/db"
	"stationhr/internal/platform/jobs"
	"stationhr/internal/platform/metrics"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: leavejobs <monthly-accrual|annual-reset> [-as-of YYYY-MM-DD] [-force]")
}

func parseRunOptions(name string, args []string) (leave.RunOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	asOf := fs.String("as-of", "", "run as if today were this date (YYYY-MM-DD)")
	force := false
	if name == "monthly-accrual" {
		fs.BoolVar(&force, "force", false, "run even when the as-of date is not the 1st")
	}
	if err := fs.Parse(args); err != nil {
		return leave.RunOptions{}, err
	}
	opts := leave.RunOptions{Force: force}
	if *asOf != "" {
		parsed, err := time.Parse("2006-01-02", *asOf)
		if err != nil {
			return leave.RunOptions{}, fmt.Errorf("invalid -as-of %q: %w", *asOf, err)
		}
		opts.AsOf = parsed
	}
	return opts, nil
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("missing job name")
	}
	name := args[0]
	if name != "monthly-accrual" && name != "annual-reset" {
		usage()
		return fmt.Errorf("unknown job %q", name)
	}
	opts, err := parseRunOptions(name, args[1:])
	if err != nil {
		return err
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	leaveSvc := leave.NewService(leave.NewStore(pool), leave.Options{
		StoreTimeout: cfg.StoreTimeout,
		Concurrency:  cfg.AccrualConcurrency,
	})
	svc := jobs.New(pool, leaveSvc, metrics.New())

	var summary leave.RunSummary
	if name == "monthly-accrual" {
		summary, err = svc.MonthlyAccrual(ctx, opts)
	} else {
		summary, err = svc.AnnualReset(ctx, opts)
	}
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(summary)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.Error("leave job failed", "err", err)
		os.Exit(1)
	}
}
