package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
)

const runTimeout = 5 * time.Minute

// Runner is the job the scheduler fires.
type Runner interface {
	Run(ctx context.Context) (Report, error)
}

// Scheduler fires the weekly broadcast on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger log15.Logger
}

type cronLogger struct {
	logger log15.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "err", err)...)
}

// New validates schedule in timezone and registers runner. The scheduler does
// not fire until Start is called.
func New(schedule, timezone string, runner Runner, logger log15.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("New: invalid timezone %q: %w", timezone, err)
	}

	logger = logger.New("module", "scheduler")
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		logger: logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.fire); err != nil {
		return nil, fmt.Errorf("New: invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	started := time.Now()
	report, err := s.runner.Run(ctx)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			s.logger.Warn("Broadcast delivery error", "err", e)
		}
	}
	s.logger.Info("Broadcast finished", "took", time.Since(started),
		"organizations", report.Organizations, "sent", report.Sent, "failed", report.Failed)
}

// Next reports when the broadcast fires next.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "next", s.Next())
}

// Stop prevents further runs and waits for a running broadcast to finish or
// for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
