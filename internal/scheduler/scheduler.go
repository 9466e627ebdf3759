// Package scheduler runs the periodic scoring sweep on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/lake-health-service/internal/engine"
	"github.com/robfig/cron/v3"
)

// Sweeper performs one sweep over every lake.
type Sweeper interface {
	Sweep(ctx context.Context) (engine.SweepResult, error)
}

// Scheduler triggers Sweep on a cron spec. A sweep that is still running when
// the next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *slog.Logger
	ctx     context.Context
}

// New parses schedule (standard five-field cron or a descriptor such as
// "@every 15m") and prepares a stopped scheduler.
func New(schedule string, sweeper Sweeper, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper: sweeper,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.runSweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// an in-flight sweep to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("sweep scheduler started", "next", s.cron.Entries()[0].Next)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("sweep scheduler stopped")
	return nil
}

func (s *Scheduler) runSweep() {
	res, err := s.sweeper.Sweep(s.ctx)
	if err != nil {
		s.logger.Error("scheduled sweep failed", "error", err, "lakes", res.Lakes)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
