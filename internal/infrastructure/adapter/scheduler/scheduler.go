// Package scheduler runs maintenance jobs on a cron schedule: expired sender
// locks and payment submissions are swept so abandoned payments cannot block
// a sender or pile up in memory.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/domain/port/persistence"
)

// DefaultSweepSpec runs the sweep every minute
const DefaultSweepSpec = "@every 1m"

const sweepTimeout = 30 * time.Second

// Jobs holds the maintenance tasks
type Jobs struct {
	locks       persistence.SenderLock
	submissions persistence.SubmissionStore
	logger      coreport.Logger
}

// NewJobs creates the maintenance jobs
func NewJobs(locks persistence.SenderLock, submissions persistence.SubmissionStore, logger coreport.Logger) *Jobs {
	return &Jobs{locks: locks, submissions: submissions, logger: logger}
}

// Sweep removes expired sender locks and submissions. A failure in one part
// does not stop the other.
func (j *Jobs) Sweep(ctx context.Context) {
	locks, err := j.locks.CleanupExpiredLocks(ctx)
	if err != nil {
		j.logger.Error("Failed to clean up expired sender locks", map[string]any{"error": err.Error()})
	}

	submissions, err := j.submissions.PurgeExpired(ctx)
	if err != nil {
		j.logger.Error("Failed to purge expired submissions", map[string]any{"error": err.Error()})
	}

	if locks > 0 || submissions > 0 {
		j.logger.Info("Maintenance sweep finished", map[string]any{
			"locks_removed":       locks,
			"submissions_removed": submissions,
		})
	}
}

// Scheduler manages the cron jobs
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	spec   string
	logger coreport.Logger
}

// NewScheduler creates a scheduler; an empty spec means DefaultSweepSpec
func NewScheduler(jobs *Jobs, spec string, logger coreport.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	cronLogger := cronLogAdapter{logger: logger}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)), cron.WithLogger(cronLogger)),
		jobs:   jobs,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the jobs and starts the cron scheduler
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		s.jobs.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep job: %w", err)
	}

	s.logger.Info("Scheduled maintenance sweep", map[string]any{"schedule": s.spec})
	s.cron.Start()
	return nil
}

// Stop stops the scheduler; the returned context is done once running jobs finish
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogAdapter routes cron's own log lines to the application logger
type cronLogAdapter struct {
	logger coreport.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Debug("cron: "+msg, pairs(keysAndValues))
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...any) {
	fields := pairs(keysAndValues)
	fields["error"] = err.Error()
	a.logger.Error("cron: "+msg, fields)
}

func pairs(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2+1)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
