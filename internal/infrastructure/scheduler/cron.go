package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"ContributionScorer/internal/ports"
)

// CronScheduler runs one job on a cron expression. Runs never overlap.
type CronScheduler struct {
	spec  string
	loc   *time.Location
	mu    sync.Mutex
	sched *gocron.Scheduler
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for a five-field cron expression
// evaluated in loc (UTC when nil).
func NewCronScheduler(spec string, loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{spec: spec, loc: loc}
}

// Start registers job and begins firing it asynchronously. It stops on its
// own when ctx is cancelled.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched != nil {
		return nil
	}

	s := gocron.NewScheduler(c.loc)
	s.SingletonModeAll()
	if _, err := s.Cron(c.spec).Do(func() {
		job(time.Now().In(c.loc))
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", c.spec, err)
	}

	s.StartAsync()
	c.sched = s

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts the scheduler. Calling it twice is harmless.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched == nil {
		return nil
	}
	c.sched.Stop()
	c.sched = nil
	return nil
}
