// Package refresh keeps the workbook cache warm on a cron schedule so
// dashboard requests rarely wait on a download.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stwalsh4118/dmrb/internal/logger"
)

// parser accepts standard 5-field cron expressions (minute, hour, dom, month, dow).
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSchedule validates a 5-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", expr, err)
	}
	return sched, nil
}

// Source is the part of the workbook repository a refresh touches.
type Source interface {
	Invalidate(ctx context.Context) error
}

// Loader re-populates the cache after an invalidation.
type Loader func(ctx context.Context) error

// Scheduler invalidates and reloads the workbook at each fire time.
type Scheduler struct {
	schedule cron.Schedule
	expr     string
	src      Source
	load     Loader
	timeout  time.Duration
	loc      *time.Location
	log      *logger.Logger
	now      func() time.Time
}

// NewScheduler builds a Scheduler for expr evaluated in loc. Each refresh is
// bounded by timeout.
func NewScheduler(expr string, src Source, load Loader, timeout time.Duration, loc *time.Location, log *logger.Logger) (*Scheduler, error) {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		schedule: sched,
		expr:     expr,
		src:      src,
		load:     load,
		timeout:  timeout,
		loc:      loc,
		log:      log.WithComponent("refresh"),
		now:      time.Now,
	}, nil
}

// nextDelay returns how long to wait until the next fire time.
func (s *Scheduler) nextDelay() time.Duration {
	now := s.now().In(s.loc)
	d := s.schedule.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RunOnce drops the cached workbook and loads it again.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.now()
	if err := s.src.Invalidate(ctx); err != nil {
		s.log.Warn("Scheduled cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
	if err := s.load(ctx); err != nil {
		s.log.Error("Scheduled workbook refresh failed", err, nil)
		return fmt.Errorf("scheduled refresh: %w", err)
	}

	s.log.Info("Scheduled workbook refresh complete", map[string]interface{}{
		"duration_ms": s.now().Sub(start).Milliseconds(),
	})
	return nil
}

// Run blocks, refreshing at every fire time, until ctx is cancelled. Failed
// refreshes are logged and retried at the next fire time.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("Refresh scheduler started", map[string]interface{}{
		"schedule": s.expr,
		"timezone": s.loc.String(),
	})

	timer := time.NewTimer(s.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Refresh scheduler stopped", nil)
			return
		case <-timer.C:
			_ = s.RunOnce(ctx)
			timer.Reset(s.nextDelay())
		}
	}
}
