package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RunFunc executes one scheduled pass.
type RunFunc func(context.Context) error

// SchedulerConfig configures periodic execution.
type SchedulerConfig struct {
	Interval   time.Duration
	RunAtStart bool
	Logger     *zap.Logger
}

// Scheduler invokes a RunFunc on a fixed interval until stopped. It is a
// thin ticker loop; the run itself must be idempotent so overlapping process
// restarts or manual triggers are harmless.
type Scheduler struct {
	name string
	run  RunFunc

	interval   time.Duration
	runAtStart bool
	logger     *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewScheduler builds a scheduler around the provided run function.
func NewScheduler(name string, run RunFunc, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Scheduler{
		name:       name,
		run:        run,
		interval:   cfg.Interval,
		runAtStart: cfg.RunAtStart,
		logger:     cfg.Logger,
	}
}

// Start launches the ticker loop. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop()
	s.started = true
	s.logger.Sugar().Infow("scheduler started", "job", s.name, "interval", s.interval)
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Sugar().Infow("scheduler stopped", "job", s.name)
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	if s.runAtStart {
		s.execute()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.execute()
		}
	}
}

func (s *Scheduler) execute() {
	if err := s.run(s.ctx); err != nil {
		s.logger.Sugar().Errorw("scheduled run failed", "job", s.name, "error", err)
	}
}
