package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const DefaultSweepSpec = "@every 5m"

// Sweeper evicts expired windows on a schedule independent of traffic.
type Sweeper struct {
	Store  Store
	Spec   string
	Logger *slog.Logger
	Now    func() time.Time

	cron *cron.Cron
}

func NewSweeper(store Store, spec string, logger *slog.Logger) *Sweeper {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{Store: store, Spec: spec, Logger: logger, Now: time.Now}
}

func (s *Sweeper) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(s.Spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.Logger.Info("rate limit sweeper started", "spec", s.Spec)
	return nil
}

// Stop waits for a running sweep to finish or ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.Logger.Info("rate limit sweeper stopped")
}

func (s *Sweeper) RunOnce(ctx context.Context) int {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	removed, err := s.Store.Sweep(ctx, now)
	if err != nil {
		s.Logger.Error("rate_limit_sweep_error", "error", err)
		return 0
	}
	if removed > 0 {
		s.Logger.Debug("rate_limit_sweep", "removed", removed)
	}
	return removed
}
