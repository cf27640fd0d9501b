package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/fleetlock/internal/discovery"
)

// Poller drains pending discovery datagrams without blocking.
type Poller interface {
	Drain() (int, error)
}

// Intervals configures the three timer cadences.
type Intervals struct {
	Poll      time.Duration
	Reconcile time.Duration
	Sweep     time.Duration
}

// DefaultIntervals returns the cadences devices are tuned for.
func DefaultIntervals() Intervals {
	return Intervals{
		Poll:      time.Second,
		Reconcile: 3 * time.Second,
		Sweep:     time.Second,
	}
}

// Scheduler is the timer tier. One goroutine owns the discovery poll, the
// reconcile pass and the liveness sweep, so they never run concurrently
// with each other. Network sends happen on the dispatcher worker, not here.
type Scheduler struct {
	poller     Poller
	reconciler *Reconciler
	sweeper    *Sweeper
	intervals  Intervals
	logger     Logger

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewScheduler creates a Scheduler. poller may be nil when discovery is disabled.
func NewScheduler(poller Poller, reconciler *Reconciler, sweeper *Sweeper, intervals Intervals) *Scheduler {
	def := DefaultIntervals()
	if intervals.Poll <= 0 {
		intervals.Poll = def.Poll
	}
	if intervals.Reconcile <= 0 {
		intervals.Reconcile = def.Reconcile
	}
	if intervals.Sweep <= 0 {
		intervals.Sweep = def.Sweep
	}
	return &Scheduler{
		poller:     poller,
		reconciler: reconciler,
		sweeper:    sweeper,
		intervals:  intervals,
		logger:     noopLogger{},
		done:       make(chan struct{}),
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// Start launches the timer goroutine. It runs until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run(ctx)
		s.logger.Info("scheduler started",
			"poll_interval", s.intervals.Poll,
			"reconcile_interval", s.intervals.Reconcile,
			"sweep_interval", s.intervals.Sweep)
	})
}

// Stop halts the timers and waits for the current tick to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.logger.Info("scheduler stopped")
	})
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	pollTicker := time.NewTicker(s.intervals.Poll)
	defer pollTicker.Stop()
	reconcileTicker := time.NewTicker(s.intervals.Reconcile)
	defer reconcileTicker.Stop()
	sweepTicker := time.NewTicker(s.intervals.Sweep)
	defer sweepTicker.Stop()

	poller := s.poller

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-pollTicker.C:
			if poller == nil {
				continue
			}
			if _, err := poller.Drain(); err != nil {
				s.logger.Error("discovery poll failed", "error", err)
				if errors.Is(err, discovery.ErrListenerClosed) {
					s.logger.Warn("discovery disabled until restart")
					poller = nil
				}
			}
		case <-reconcileTicker.C:
			s.reconciler.Reconcile()
		case <-sweepTicker.C:
			s.sweeper.Sweep()
		}
	}
}
