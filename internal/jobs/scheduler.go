// Package jobs runs the periodic maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StreakSweeper zeroes streaks that can no longer be continued.
type StreakSweeper interface {
	SweepLapsedStreaks(ctx context.Context) (int, error)
}

// Scheduler owns the cron runner for background jobs.
type Scheduler struct {
	cron    *cron.Cron
	sweeper StreakSweeper
	spec    string
	log     *logrus.Entry
}

// NewScheduler builds a scheduler that evaluates spec in loc.
func NewScheduler(sweeper StreakSweeper, spec string, loc *time.Location, log *logrus.Entry) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		sweeper: sweeper,
		spec:    spec,
		log:     log.WithField("component", "jobs"),
	}
}

// Start registers the jobs and starts the runner. Jobs receive ctx, so cancelling
// it aborts a sweep in flight.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule streak sweep %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.log.WithField("schedule", s.spec).Info("scheduler started")
	return nil
}

func (s *Scheduler) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.log.Debug("streak sweep starting")
	if _, err := s.sweeper.SweepLapsedStreaks(ctx); err != nil {
		s.log.WithError(err).Error("streak sweep failed")
	}
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
