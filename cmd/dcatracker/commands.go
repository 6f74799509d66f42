package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/simaogato/dca-tracker/internal/app"
	"github.com/simaogato/dca-tracker/internal/config"
	"github.com/simaogato/dca-tracker/internal/logger"
	"github.com/simaogato/dca-tracker/internal/scheduler"
)

var commands = []subcommands.Command{
	&runCmd{},
	&allocateCmd{},
	&reportCmd{},
	&scheduleCmd{},
}

// setup loads the configuration, the logger and the wired application
func setup(ctx context.Context) (*app.App, zerolog.Logger, func(), error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("load configuration: %w", err)
	}

	log, logCloser, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		File:   cfg.Logging.File,
		Stderr: true,
	})
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	logger.SetGlobalLogger(log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		logCloser.Close()
		return nil, log, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
		logCloser.Close()
	}
	return a, log, cleanup, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type runCmd struct{}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run one contribution cycle and print the resulting report" }
func (*runCmd) Usage() string {
	return `dcatracker [-config <file>] run

  Allocates the monthly contribution, applies it to the portfolio,
  saves the portfolio and writes the investment report.
`
}
func (*runCmd) SetFlags(*flag.FlagSet) {}

func (*runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, log, cleanup, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer cleanup()

	result, err := a.Tracker.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Contribution cycle aborted")
		return subcommands.ExitFailure
	}
	for _, w := range result.Warnings {
		log.Warn().Err(w).Msg("Cycle warning")
	}

	if err := printJSON(os.Stdout, result.Report); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type allocateCmd struct{}

func (*allocateCmd) Name() string     { return "allocate" }
func (*allocateCmd) Synopsis() string { return "print the next allocation plan without investing" }
func (*allocateCmd) Usage() string {
	return `dcatracker [-config <file>] allocate

  Computes the allocation the next cycle would apply. Nothing is saved.
`
}
func (*allocateCmd) SetFlags(*flag.FlagSet) {}

func (*allocateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, log, cleanup, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer cleanup()

	plan, warnings := a.Tracker.Preview(ctx)
	for _, w := range warnings {
		log.Warn().Err(w).Msg("Preview warning")
	}

	if err := printJSON(os.Stdout, plan); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type reportCmd struct{}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "regenerate the investment report without investing" }
func (*reportCmd) Usage() string {
	return `dcatracker [-config <file>] report

  Recomputes ROI for the saved portfolio against the latest prices and
  writes the investment report.
`
}
func (*reportCmd) SetFlags(*flag.FlagSet) {}

func (*reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, log, cleanup, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer cleanup()

	rep, warnings := a.Tracker.Report(ctx)
	for _, w := range warnings {
		log.Warn().Err(w).Msg("Report warning")
	}

	if err := printJSON(os.Stdout, rep); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type scheduleCmd struct {
	now bool
}

func (*scheduleCmd) Name() string     { return "schedule" }
func (*scheduleCmd) Synopsis() string { return "run contribution cycles on the configured cron schedule" }
func (*scheduleCmd) Usage() string {
	return `dcatracker [-config <file>] schedule [-now]

  Runs until interrupted, executing a contribution cycle on every tick of
  the configured schedule (default: 09:00 on the first day of the month).
`
}

func (c *scheduleCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.now, "now", false, "also run one cycle immediately")
}

func (c *scheduleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, log, cleanup, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer cleanup()

	sched := scheduler.New(ctx, log)
	job := scheduler.NewCycleJob(a.Tracker, log)
	if err := sched.AddJob(a.Config.Schedule, job); err != nil {
		log.Error().Err(err).Msg("Failed to register contribution cycle")
		return subcommands.ExitFailure
	}

	if c.now {
		if err := sched.RunNow(job); err != nil {
			log.Error().Err(err).Msg("Immediate cycle failed")
		}
	}

	sched.Start()
	<-ctx.Done()
	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()
	return subcommands.ExitSuccess
}
