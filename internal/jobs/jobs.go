// Package jobs runs periodic maintenance in the background.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var jobsLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	jobsLogger = l
}

// DraftPurger deletes drafts last saved before olderThan.
type DraftPurger interface {
	PurgeDrafts(ctx context.Context, olderThan time.Time) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	now     func() time.Time
}

func New() *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		timeout: time.Minute,
		now:     time.Now,
	}
}

// AddDraftPurge schedules removal of drafts older than retention. A retention of zero
// keeps drafts forever and schedules nothing.
func (s *Scheduler) AddDraftPurge(schedule string, retention time.Duration, drafts DraftPurger) error {
	if retention <= 0 {
		jobsLogger.Info().Msg("Draft retention disabled")
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.purgeDrafts(drafts, retention)
	})
	if err != nil {
		return fmt.Errorf("error scheduling draft purge %q: %w", schedule, err)
	}
	return nil
}

func (s *Scheduler) purgeDrafts(drafts DraftPurger, retention time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	cutoff := s.now().Add(-retention)
	n, err := drafts.PurgeDrafts(ctx, cutoff)
	if err != nil {
		jobsLogger.Error().Err(err).Msg("Failed to purge drafts")
		return
	}
	jobsLogger.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("Purged old drafts")
}

func (s *Scheduler) Start() {
	s.cron.Start()
	jobsLogger.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	jobsLogger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}
