// Package scheduler drives the daily assessment loop: once per interval it
// assesses the previous day, publishes the hotspot summary, and records
// metrics.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/geoandina/droughtfire/internal/observability"
	"github.com/geoandina/droughtfire/internal/pipeline"
	"github.com/geoandina/droughtfire/internal/raster"
)

// Assessor runs one per-date assessment and derives its hotspot mask.
type Assessor interface {
	Assess(ctx context.Context, date time.Time) (*pipeline.DailyStack, error)
	Hotspots(stack *pipeline.DailyStack) *raster.Layer
}

// Publisher delivers one alert summary downstream.
type Publisher interface {
	Publish(ctx context.Context, summary pipeline.AlertSummary) error
}

// Scheduler runs assessments of the previous day on a fixed interval.
type Scheduler struct {
	assessor  Assessor
	publisher Publisher // nil disables alert publishing
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Scheduler. A nil publisher disables alerting.
func New(assessor Assessor, publisher Publisher, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		assessor:  assessor,
		publisher: publisher,
		interval:  interval,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run assesses once immediately, then once per interval, until the context
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			s.runOnce(ctx)
		}
	}
}

// runOnce assesses the previous day, retrying transient failures with
// exponential backoff: start at 200ms, double each retry, cap at 5s.
func (s *Scheduler) runOnce(ctx context.Context) {
	date := s.clock.Now().UTC().AddDate(0, 0, -1)

	backoff := 200 * time.Millisecond
	const maxBackoff = 5 * time.Second
	const maxAttempts = 3

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		stack, err := s.assessor.Assess(ctx, date)
		if err == nil {
			s.publish(ctx, stack)
			return
		}
		if ctx.Err() != nil {
			return
		}

		s.logger.Error("scheduled assessment failed",
			"date", date.Format("2006-01-02"),
			"attempt", attempt,
			"error", err,
		)
		if attempt == maxAttempts {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// publish sends the summary when alerting is enabled. Publish failures are
// logged and dropped; the next interval produces a fresh summary anyway.
func (s *Scheduler) publish(ctx context.Context, stack *pipeline.DailyStack) {
	summary := pipeline.Summarize(stack, s.assessor.Hotspots(stack))
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, summary); err != nil {
		s.logger.Error("alert publish failed", "date", summary.Date, "error", err)
	}
}
