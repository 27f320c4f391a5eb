package audit

import (
	"context"
	"log/slog"
	"time"

	"atrium/internal/platform/tracer"
)

// Retention purges audit entries older than the configured day threshold.
// It is the only component allowed to delete audit rows.
type Retention struct {
	store    Store
	days     int
	interval time.Duration
	logger   *slog.Logger
	metrics  *Metrics
	tracer   tracer.Tracer
}

// NewRetention creates the retention worker. days must be positive; interval
// controls how often the periodic purge runs.
func NewRetention(store Store, days int, interval time.Duration, logger *slog.Logger, opts ...RetentionOption) *Retention {
	r := &Retention{
		store:    store,
		days:     days,
		interval: interval,
		logger:   logger,
		tracer:   tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RetentionOption configures the Retention worker.
type RetentionOption func(*Retention)

// WithRetentionMetrics wires the purged-rows counter.
func WithRetentionMetrics(m *Metrics) RetentionOption {
	return func(r *Retention) {
		r.metrics = m
	}
}

// WithRetentionTracer wires span emission around purges.
func WithRetentionTracer(t tracer.Tracer) RetentionOption {
	return func(r *Retention) {
		r.tracer = t
	}
}

// Run executes periodic purges until the context is canceled. It always
// returns nil so an errgroup sibling failure, not the worker, decides
// process exit.
func (r *Retention) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.PurgeOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "audit retention purge failed", "error", err)
			}
		}
	}
}

// PurgeOnce removes entries older than the retention threshold and returns
// how many rows were deleted. Also used by the on-demand admin endpoint.
func (r *Retention) PurgeOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -r.days)

	ctx, span := r.tracer.Start(ctx, tracer.SpanAuditPurge,
		tracer.Int64("retention_days", int64(r.days)),
	)

	purged, err := r.store.PurgeOlderThan(ctx, cutoff)
	span.End(err)
	if err != nil {
		return 0, err
	}

	if purged > 0 {
		r.logger.InfoContext(ctx, "audit retention purge completed",
			"purged", purged,
			"retention_days", r.days,
		)
	}
	if r.metrics != nil {
		r.metrics.RowsPurged(purged)
	}
	return purged, nil
}
