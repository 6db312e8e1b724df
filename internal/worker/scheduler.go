package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
	"github.com/felipesemedo05/parcelas-servico/internal/store"
)

// DigestJob loads the record store and sends the report for the current month.
type DigestJob struct {
	store    store.Store
	notifier Notifier
	now      func() time.Time
	upcoming int
}

func NewDigestJob(st store.Store, n Notifier) *DigestJob {
	return &DigestJob{store: st, notifier: n, now: time.Now, upcoming: 3}
}

// Run builds and delivers one digest.
func (j *DigestJob) Run(ctx context.Context) error {
	recs, err := j.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load records for digest: %w", err)
	}
	ref := core.DateOf(j.now()).Period()
	report := BuildReport(recs, ref, j.upcoming)
	if err := j.notifier.Notify(ctx, report.Subject(), report.Text()); err != nil {
		return fmt.Errorf("deliver digest for %s: %w", ref.Key(), err)
	}
	return nil
}

// Scheduler runs the digest job on a cron schedule.
type Scheduler struct {
	spec string
	job  *DigestJob

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewScheduler validates spec (standard 5-field cron syntax).
func NewScheduler(spec string, job *DigestJob) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", spec, err)
	}
	return &Scheduler{spec: spec, job: job}, nil
}

// Start registers the job and starts the cron loop. Returns an error if
// already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("digest scheduler is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.spec, func() {
		if err := s.job.Run(ctx); err != nil {
			slog.ErrorContext(ctx, "Digest job failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}
	c.Start()
	s.cron = c
	s.running = true

	slog.InfoContext(ctx, "Digest scheduler started", "schedule", s.spec, "next", c.Entries()[0].Next)
	return nil
}

// Stop stops the cron loop and waits for a running job, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.running = false
	s.cron = nil
	s.mu.Unlock()

	select {
	case <-c.Stop().Done():
		slog.InfoContext(ctx, "Digest scheduler stopped")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Digest scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns true if the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}
