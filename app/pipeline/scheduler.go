package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/loqui-app/news-harvester/app/database"
)

// Scheduler triggers an acquisition cycle on a fixed interval. Overlap
// control belongs to the cycle lock: a tick that fires while a cycle runs
// produces a skipped report, it is never queued.
type Scheduler struct {
	orchestrator *Orchestrator
	interval     time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func NewScheduler(orchestrator *Orchestrator, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		orchestrator: orchestrator,
		interval:     interval,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		slog.Info("Acquisition scheduler started", "interval", s.interval.String())

		// First cycle runs immediately on startup.
		s.orchestrator.RunCycle(s.ctx, database.TriggerScheduled)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.orchestrator.RunCycle(s.ctx, database.TriggerScheduled)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("Acquisition scheduler stopped")
}

// TriggerNow starts a manual cycle unless one is already running. The
// reported start is advisory; the cycle lock remains the authority on
// overlap.
func (s *Scheduler) TriggerNow() bool {
	if s.ctx.Err() != nil || s.orchestrator.Running() {
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.orchestrator.RunCycle(s.ctx, database.TriggerManual)
	}()

	return true
}
