package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"AINewsDigest/internal/ports"
)

// DailyScheduler triggers the job once a day at a fixed wall-clock time
// in the configured timezone. With catch-up enabled the job also fires
// immediately when the scheduler starts after today's slot has passed.
type DailyScheduler struct {
	runAt   string
	loc     *time.Location
	catchUp bool
	logger  *slog.Logger
	stop    chan struct{}
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler builds a scheduler from an HH:MM run time.
func NewDailyScheduler(runAt string, loc *time.Location, catchUp bool, logger *slog.Logger) *DailyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyScheduler{runAt: runAt, loc: loc, catchUp: catchUp, logger: logger}
}

// Start launches the timer goroutine. Calling Start twice without Stop
// is a no-op.
func (d *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if d.stop != nil {
		return nil
	}

	hour, minute, err := parseRunAt(d.runAt)
	if err != nil {
		return err
	}

	d.stop = make(chan struct{})
	stop := d.stop

	go func() {
		if d.catchUp {
			now := time.Now().In(d.loc)
			slot := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, d.loc)
			if !now.Before(slot) {
				d.logger.Info("run time already passed today, catching up", "runAt", d.runAt)
				job(now)
			}
		}

		for {
			now := time.Now().In(d.loc)
			next := nextRun(now, hour, minute)
			d.logger.Info("next scheduled run", "at", next.Format(time.DateTime))

			timer := time.NewTimer(next.Sub(now))
			select {
			case t := <-timer.C:
				job(t)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the timer goroutine.
func (d *DailyScheduler) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	d.stop = nil
	return nil
}

// nextRun is the first instant strictly after now matching the wall time.
func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func parseRunAt(value string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("run time %q must be HH:MM", value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("run time %q has an invalid hour", value)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("run time %q has an invalid minute", value)
	}

	return hour, minute, nil
}
