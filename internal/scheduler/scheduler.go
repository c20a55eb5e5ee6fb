// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Entry describes a registered job
type Entry struct {
	Next     time.Time `json:"next"`
	Prev     time.Time `json:"prev,omitempty"`
	Job      string    `json:"job"`
	Schedule string    `json:"schedule"`
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu      sync.Mutex
	entries map[cron.EntryID]Entry
}

// New creates a new scheduler. Schedules take a leading seconds field.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		log:     log.With().Str("component", "scheduler").Logger(),
		entries: make(map[cron.EntryID]Entry),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 0 12 * * *"       - Every day at noon
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	id, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("Running job")

		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		} else {
			s.log.Debug().Str("job", job.Name()).Msg("Job completed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", schedule, job.Name(), err)
	}

	s.mu.Lock()
	s.entries[id] = Entry{Job: job.Name(), Schedule: schedule}
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}

// Entries lists registered jobs with their next run time
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for id, e := range s.entries {
		ce := s.cron.Entry(id)
		e.Next = ce.Next
		e.Prev = ce.Prev
		out = append(out, e)
	}
	return out
}

// FuncJob adapts a function to Job
type FuncJob struct {
	JobName string
	Fn      func() error
}

// Run calls Fn
func (f FuncJob) Run() error { return f.Fn() }

// Name returns JobName
func (f FuncJob) Name() string { return f.JobName }
