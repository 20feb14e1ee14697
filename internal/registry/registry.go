// Package registry provides the process-wide operation registry: a
// thread-safe map from opaque job ids to in-flight job metadata, with a
// background sweep that evicts aged-out entries and releases the large
// media buffers they hold.
//
// The registry is the only shared mutable resource between concurrent
// orchestration runs. Discipline is single-writer-per-key: only the
// provider step that owns a job id writes its entry, and the sweep only
// deletes, never mutates a live entry.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Defaults for the sweep cadence and eviction thresholds. Production
// values should be revisited against observed backend latency.
const (
	// DefaultTTL is how long a completed entry and its cached media are
	// retained after completion.
	DefaultTTL = 30 * time.Minute
	// DefaultStallTimeout is how long a never-completing entry is kept
	// before being treated as abandoned.
	DefaultStallTimeout = 60 * time.Minute
	// DefaultSweepInterval is the period between sweep passes.
	DefaultSweepInterval = 5 * time.Minute
)

// Resource is anything holding releasable memory, typically a playable
// media buffer. Release must be idempotent.
type Resource interface {
	Release()
}

// Entry is the registry's record of one backend job. The registry owns
// entries exclusively; callers interact only through the job id.
type Entry struct {
	// JobID is the caller-facing opaque identifier.
	JobID string
	// Provider names the backend that owns the job.
	Provider string
	// Handle is the backend-internal operation handle (task id,
	// operation name) needed for follow-up polls.
	Handle string
	// StartedAt is when the job was submitted.
	StartedAt time.Time
	// CompletedAt is when the job reached a terminal state; zero while
	// the job is still in flight.
	CompletedAt time.Time
	// Status is the last observed job status.
	Status string
	// Progress is the last observed completion percentage.
	Progress int
	// Playable is the cached media conversion, released on eviction.
	Playable Resource
	// SourceRef is the durable provider reference for chaining a
	// further extension. Kept separate from Playable: only SourceRef is
	// valid extension input.
	SourceRef string
	// Failure is the cached terminal error, if the job failed.
	Failure error
}

// Registry maps job ids to entries and owns the eviction sweep.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry

	ttl           time.Duration
	stallTimeout  time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL sets the retention period for completed entries.
func WithTTL(d time.Duration) Option {
	return func(r *Registry) { r.ttl = d }
}

// WithStallTimeout sets the retention period for never-completing entries.
func WithStallTimeout(d time.Duration) Option {
	return func(r *Registry) { r.stallTimeout = d }
}

// WithSweepInterval sets the period between sweep passes.
func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) { r.sweepInterval = d }
}

// WithClock injects a clock, used by tests to drive eviction
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// New creates a Registry. The sweep does not run until Start is called.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries:       make(map[string]Entry),
		ttl:           DefaultTTL,
		stallTimeout:  DefaultStallTimeout,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		logger:        slog.Default(),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Put stores or replaces an entry under its job id.
func (r *Registry) Put(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.JobID] = entry
}

// Get returns a copy of the entry for the given job id. The copy shares
// the Playable resource with the stored entry; everything else is
// caller-owned.
func (r *Registry) Get(jobID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[jobID]
	return entry, ok
}

// Delete removes an entry, releasing any held resources first. Resource
// release is never skipped, whether deletion comes from the sweep or from
// an explicit caller.
func (r *Registry) Delete(jobID string) {
	r.mu.Lock()
	entry, ok := r.entries[jobID]
	if ok {
		delete(r.entries, jobID)
	}
	r.mu.Unlock()

	if ok && entry.Playable != nil {
		entry.Playable.Release()
	}
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Start launches the background sweep. It returns immediately; the sweep
// stops when Stop is called or the context is cancelled.
func (r *Registry) Start(ctx context.Context) {
	go func() {
		defer close(r.doneCh)
		ticker := time.NewTicker(r.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

// Stop terminates the background sweep. Safe to call more than once.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Sweep evicts entries whose completion has aged past the TTL, and
// entries that never completed within the stall timeout. Held resources
// are released before the entry disappears.
func (r *Registry) Sweep() {
	now := r.now()

	r.mu.Lock()
	var evicted []Entry
	for jobID, entry := range r.entries {
		expired := false
		switch {
		case !entry.CompletedAt.IsZero():
			expired = now.Sub(entry.CompletedAt) > r.ttl
		default:
			expired = now.Sub(entry.StartedAt) > r.stallTimeout
		}
		if expired {
			delete(r.entries, jobID)
			evicted = append(evicted, entry)
		}
	}
	r.mu.Unlock()

	for _, entry := range evicted {
		if entry.Playable != nil {
			entry.Playable.Release()
		}
		r.logger.Debug("registry entry evicted",
			slog.String("job_id", entry.JobID),
			slog.String("provider", entry.Provider),
			slog.Bool("completed", !entry.CompletedAt.IsZero()),
		)
	}
}
