// Package jobs runs periodic maintenance work.
package jobs

import (
	"context"
	"time"

	"market-chat/internal/metrics"
	"market-chat/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sessionCleanupJob = "session_cleanup"

// SessionCleaner deletes sessions that are expired or revoked.
type SessionCleaner interface {
	CleanExpiredSessions(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	cleaner SessionCleaner
	timeout time.Duration
}

func NewScheduler(cleaner SessionCleaner) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		cleaner: cleaner,
		timeout: 30 * time.Second,
	}
}

// Start registers the jobs on spec (standard cron or "@every" syntax) and
// begins running them in the background.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.RunSessionCleanup(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) RunSessionCleanup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	removed, err := s.cleaner.CleanExpiredSessions(ctx)
	metrics.RecordJobRun(sessionCleanupJob, time.Since(start), err == nil)
	if err != nil {
		logger.Component("jobs").Error("session cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		logger.Component("jobs").Info("expired sessions removed", zap.Int64("count", removed))
	}
}
