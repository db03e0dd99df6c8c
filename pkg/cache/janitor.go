package cache

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Janitor sweeps expired entries on a fixed schedule so idle entries do
// not pin memory until their next access.
type Janitor struct {
	cron *cron.Cron
}

// defaultSweepSchedule runs the sweep every five minutes.
const defaultSweepSchedule = "@every 5m"

// StartJanitor schedules periodic sweeps of the cache. Call Stop on
// shutdown.
func StartJanitor(c *Cache, schedule string) (*Janitor, error) {
	if schedule == "" {
		schedule = defaultSweepSchedule
	}

	runner := cron.New()
	_, err := runner.AddFunc(schedule, func() {
		if removed := c.Sweep(); removed > 0 {
			slog.Debug("cache sweep removed expired entries", "removed", removed)
		}
	})
	if err != nil {
		return nil, err
	}

	runner.Start()
	return &Janitor{cron: runner}, nil
}

// Stop halts the sweep schedule.
func (j *Janitor) Stop() {
	j.cron.Stop()
}
