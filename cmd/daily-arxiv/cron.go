package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ryosukesatoh/daily-arxiv/internal/calendar"
	"github.com/ryosukesatoh/daily-arxiv/internal/config"
	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
)

// pipeline is the part of runner.Runner the scheduler needs.
type pipeline interface {
	Run(ctx context.Context, kind digest.Kind, day time.Time) error
}

// cronLogger routes cron's own messages through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// scheduler runs the daily, weekly and monthly jobs. Jobs never overlap: a
// weekly report starting while the daily run is still going waits for it.
type scheduler struct {
	p      pipeline
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

func (s *scheduler) job(ctx context.Context, kind digest.Kind) func() {
	return func() {
		// Every job reports on yesterday: its daily entries are archived by
		// the daily job that ran this morning.
		day := calendar.PreviousDay(s.now(), s.loc)
		switch kind {
		case digest.KindWeekly:
			if day.Weekday() != time.Sunday {
				return
			}
		case digest.KindMonthly:
			if !calendar.IsLastDayOfMonth(day, s.loc) {
				return
			}
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		s.logger.Info("cron triggered", "mode", kind, "date", day.Format(calendar.Layout))
		if err := s.p.Run(ctx, kind, day); err != nil {
			s.logger.Error("scheduled run failed", "mode", kind, "error", err)
		}
	}
}

// register adds the three jobs to c using the expressions in sched.
func (s *scheduler) register(ctx context.Context, c *cron.Cron, sched config.ScheduleConfig) error {
	for _, j := range []struct {
		kind digest.Kind
		spec string
	}{
		{digest.KindDaily, sched.Daily},
		{digest.KindWeekly, sched.Weekly},
		{digest.KindMonthly, sched.Monthly},
	} {
		if _, err := c.AddFunc(j.spec, s.job(ctx, j.kind)); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", j.kind, j.spec, err)
		}
		s.logger.Info("scheduled job", "mode", j.kind, "cron", j.spec)
	}
	return nil
}

// serve runs the scheduler until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, p pipeline, logger *slog.Logger) error {
	s := &scheduler{p: p, loc: cfg.Location(), logger: logger, now: time.Now}
	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cronLogger{logger: logger}),
		cron.WithChain(cron.Recover(cronLogger{logger: logger})),
	)
	if err := s.register(ctx, c, cfg.Schedule); err != nil {
		return err
	}

	if cfg.Schedule.RunOnStart {
		logger.Info("running initial daily report")
		go s.job(ctx, digest.KindDaily)()
	}

	c.Start()
	logger.Info("scheduler started", "timezone", cfg.Location().String())

	<-ctx.Done()
	logger.Info("shutting down, waiting for running jobs")
	<-c.Stop().Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	logger.Info("shutdown complete")
	return nil
}
