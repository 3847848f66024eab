package cron

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/beverage-pos/pkg/logger"
	"github.com/angelmondragon/beverage-pos/pkg/metrics"
)

const defaultInterval = 2 * time.Minute

// ServiceParams configure the job scheduler.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Service runs every registered job on its own cadence.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
}

// NewService builds a scheduler. Without a Lock jobs run unguarded.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run starts one loop per job until the context is canceled. Each job runs
// once immediately and then on every tick.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, entry := range s.registry.Entries() {
		entry := entry
		g.Go(func() error {
			return s.loop(gctx, entry)
		})
	}
	err := g.Wait()
	s.logg.Info(ctx, "scheduler stopped")
	return err
}

func (s *Service) loop(ctx context.Context, entry Entry) error {
	every := entry.Every
	if every <= 0 {
		every = s.interval
	}
	s.runJob(ctx, entry.Job)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runJob(ctx, entry.Job)
		}
	}
}

// RunOnce runs the named job immediately, outside its cadence.
func (s *Service) RunOnce(ctx context.Context, name string) error {
	for _, entry := range s.registry.Entries() {
		if entry.Job.Name() == name {
			return s.runJob(ctx, entry.Job)
		}
	}
	return fmt.Errorf("job %q not registered", name)
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")

	if s.lock != nil {
		locked, err := s.lock.Acquire(jobCtx, job.Name())
		switch {
		case err != nil:
			s.logg.Error(jobCtx, "job lock unavailable; running unguarded", err)
		case !locked:
			s.logg.Debug(jobCtx, "job already running elsewhere; skipping")
			return nil
		default:
			defer func() {
				if relErr := s.lock.Release(jobCtx, job.Name()); relErr != nil {
					s.logg.Error(jobCtx, "failed to release job lock", relErr)
				}
			}()
		}
	}

	s.logg.Debug(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return err
	}
	s.logg.Debug(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
	return nil
}
