package queue

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
)

// Scheduler drives a Queue: it ticks progress at a fixed interval and runs a
// processing pass whenever the list changes or the poll interval elapses.
// Only one pass runs at a time; triggers that arrive during a pass coalesce
// into one follow-up pass.
type Scheduler struct {
	queue  *Queue
	tick   time.Duration
	poll   time.Duration
	logger logging.Logger
}

const (
	DefaultTickInterval = 300 * time.Millisecond
	DefaultPollInterval = 2 * time.Second
)

// NewScheduler creates a scheduler for q.  Non-positive intervals use the
// defaults.
func NewScheduler(q *Queue, tick, poll time.Duration, logger logging.Logger) *Scheduler {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Scheduler{queue: q, tick: tick, poll: poll, logger: logger.Named("scheduler")}
}

// Run blocks until ctx is cancelled and the in-progress pass has returned.
func (s *Scheduler) Run(ctx context.Context) error {
	changes, unsubscribe := s.queue.Subscribe(false)
	defer unsubscribe()

	trigger := make(chan struct{}, 1)
	kick := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-trigger:
				if err := s.queue.Process(ctx); err != nil && ctx.Err() == nil {
					s.logger.Warn("processing pass ended early", logging.Err(err))
				}
			}
		}
	}()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	poller := time.NewTicker(s.poll)
	defer poller.Stop()

	s.logger.Info("scheduler started",
		logging.Duration("tick", s.tick), logging.Duration("poll", s.poll))
	kick()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.queue.Tick()
		case <-changes:
			kick()
		case <-poller.C:
			kick()
		}
	}
}

// Drain runs the scheduler until no running task is left or ctx ends.
func (s *Scheduler) Drain(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes, unsubscribe := s.queue.Subscribe(false)
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	check := time.NewTicker(s.poll)
	defer check.Stop()
	for {
		if s.queue.Pending() == 0 {
			cancel()
			<-done
			return nil
		}
		select {
		case <-ctx.Done():
			<-done
			return ctx.Err()
		case <-changes:
		case <-check.C:
		}
	}
}
