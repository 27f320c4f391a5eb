package audit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"atrium/internal/platform/tracer"
	"atrium/pkg/requestcontext"
)

// Recorder appends audit entries. Record never returns an error and never
// blocks the request path beyond a single store call: availability of the
// primary operation outranks completeness of the audit trail.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
	tracer  tracer.Tracer

	entries chan Entry
	wg      sync.WaitGroup
	async   bool
}

// RecorderOption configures the Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the logger used to report swallowed store failures.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithMetrics wires prometheus counters.
func WithMetrics(m *Metrics) RecorderOption {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithTracer wires span emission around store appends.
func WithTracer(t tracer.Tracer) RecorderOption {
	return func(r *Recorder) {
		r.tracer = t
	}
}

// WithAsyncBuffer enables async processing with the specified buffer size.
// Entries are queued and persisted in a background goroutine; a full buffer
// drops the entry rather than blocking the hot path.
func WithAsyncBuffer(size int) RecorderOption {
	return func(r *Recorder) {
		if size > 0 {
			r.entries = make(chan Entry, size)
			r.async = true
		}
	}
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, tracer: tracer.NewNoop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.async {
		r.wg.Add(1)
		go r.processEntries()
	}
	return r
}

// Record appends an audit entry, enriching it with request metadata from
// context (correlation id, caller address, user agent, device summary, and
// the authenticated actor unless one was set explicitly). Failures are
// logged and counted, never surfaced.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	if entry.Severity == "" {
		entry.Severity = SeverityInfo
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}
	if entry.IPAddress == "" {
		entry.IPAddress = requestcontext.ClientIP(ctx)
	}
	if entry.UserAgent == "" {
		entry.UserAgent = requestcontext.UserAgent(ctx)
	}
	if entry.Device == "" {
		entry.Device = requestcontext.DeviceSummary(ctx)
	}
	if entry.ActorID == nil {
		if identity, ok := requestcontext.GetIdentity(ctx); ok {
			actorID := identity.UserID
			entry.ActorID = &actorID
		}
	}

	if r.async {
		select {
		case r.entries <- entry:
		default:
			if r.logger != nil {
				r.logger.Warn("audit buffer full, entry dropped",
					"action", entry.Action,
				)
			}
			r.countFailure()
		}
		return
	}

	r.append(ctx, entry)
}

// Close shuts down the async recorder and waits for pending entries to drain.
func (r *Recorder) Close() {
	if r.async && r.entries != nil {
		close(r.entries)
		r.wg.Wait()
	}
}

func (r *Recorder) processEntries() {
	defer r.wg.Done()
	for entry := range r.entries {
		r.append(context.Background(), entry)
	}
}

func (r *Recorder) append(ctx context.Context, entry Entry) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanAuditAppend,
		tracer.String("action", entry.Action),
		tracer.String("severity", string(entry.Severity)),
	)

	err := r.store.Append(ctx, entry)
	span.End(err)

	if err != nil {
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "failed to persist audit entry",
				"error", err,
				"action", entry.Action,
				"request_id", entry.RequestID,
			)
		}
		r.countFailure()
		return
	}
	if r.metrics != nil {
		r.metrics.EntryRecorded(string(entry.Severity))
	}
}

func (r *Recorder) countFailure() {
	if r.metrics != nil {
		r.metrics.WriteFailed()
	}
}
