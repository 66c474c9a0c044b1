// Package worker runs the expiry reconciler on a cron schedule.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Kosench/go-url-tracker/internal/model"
)

type Sweeper interface {
	Sweep(ctx context.Context) (*model.SweepResult, error)
}

type Config struct {
	Schedule     string
	Timezone     string
	SweepTimeout time.Duration
	RunOnStart   bool
}

// Scheduler triggers one sweep per cron tick. A tick that fires while the
// previous sweep is still running is skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	cfg     Config
	log     *zap.Logger

	mu      sync.Mutex
	baseCtx context.Context
}

func NewScheduler(sweeper Sweeper, cfg Config, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = 5 * time.Minute
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	cronLog := cronLogger{log: log.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		sweeper: sweeper,
		cfg:     cfg,
		log:     log,
		baseCtx: context.Background(),
	}

	if _, err := s.cron.AddFunc(cfg.Schedule, func() { s.RunOnce(s.context()) }); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	return s, nil
}

// Start begins scheduling. Sweeps run under ctx and stop being started once
// ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	if s.cfg.RunOnStart {
		go s.RunOnce(ctx)
	}
	s.cron.Start()

	s.log.Info("scheduler started",
		zap.String("schedule", s.cfg.Schedule),
		zap.String("timezone", s.cfg.Timezone))
}

// Stop stops scheduling and returns a context that is done once running
// sweeps have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce performs a single sweep bounded by the configured timeout.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	sweepCtx, cancel := context.WithTimeout(ctx, s.cfg.SweepTimeout)
	defer cancel()

	s.log.Debug("sweep started")
	if _, err := s.sweeper.Sweep(sweepCtx); err != nil {
		s.log.Error("sweep failed", zap.Error(err))
	}
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
