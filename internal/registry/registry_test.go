package registry

import (
	"sync"
	"testing"
	"time"
)

// fakeResource counts Release calls.
type fakeResource struct {
	mu       sync.Mutex
	released int
}

func (f *fakeResource) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
}

func (f *fakeResource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// fakeClock drives the registry's notion of now.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestPutGetDelete(t *testing.T) {
	r := New()
	res := &fakeResource{}

	r.Put(Entry{JobID: "job-1", Provider: "mock", Status: "COMPLETED", Playable: res})

	entry, ok := r.Get("job-1")
	if !ok {
		t.Fatal("Get() after Put() returned no entry")
	}
	if entry.Provider != "mock" || entry.Status != "COMPLETED" {
		t.Errorf("Get() = %+v", entry)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	r.Delete("job-1")
	if _, ok := r.Get("job-1"); ok {
		t.Error("Get() after Delete() still returns entry")
	}
	if res.count() != 1 {
		t.Errorf("resource released %d times, want 1", res.count())
	}
}

func TestDeleteUnknownIsNoop(t *testing.T) {
	r := New()
	r.Delete("missing")
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestSweepEvictsCompletedAfterTTL(t *testing.T) {
	clock := newFakeClock()
	r := New(WithTTL(30*time.Minute), WithClock(clock.Now))
	res := &fakeResource{}

	r.Put(Entry{
		JobID:       "job-1",
		StartedAt:   clock.Now(),
		CompletedAt: clock.Now(),
		Status:      "COMPLETED",
		Playable:    res,
	})

	clock.Advance(29 * time.Minute)
	r.Sweep()
	if _, ok := r.Get("job-1"); !ok {
		t.Fatal("entry evicted before TTL elapsed")
	}

	clock.Advance(2 * time.Minute)
	r.Sweep()
	if _, ok := r.Get("job-1"); ok {
		t.Fatal("entry survived past TTL")
	}
	if res.count() != 1 {
		t.Errorf("resource released %d times, want 1", res.count())
	}
}

func TestSweepEvictsStalledEntries(t *testing.T) {
	clock := newFakeClock()
	r := New(WithTTL(30*time.Minute), WithStallTimeout(time.Hour), WithClock(clock.Now))

	r.Put(Entry{JobID: "stuck", StartedAt: clock.Now(), Status: "PROCESSING"})

	// A never-completing entry outlives the completed TTL but not the
	// stall timeout.
	clock.Advance(45 * time.Minute)
	r.Sweep()
	if _, ok := r.Get("stuck"); !ok {
		t.Fatal("in-flight entry evicted before stall timeout")
	}

	clock.Advance(20 * time.Minute)
	r.Sweep()
	if _, ok := r.Get("stuck"); ok {
		t.Fatal("stalled entry survived past stall timeout")
	}
}

func TestSweepKeepsFreshEntries(t *testing.T) {
	clock := newFakeClock()
	r := New(WithClock(clock.Now))

	r.Put(Entry{JobID: "fresh", StartedAt: clock.Now(), Status: "PENDING"})
	r.Put(Entry{JobID: "done", StartedAt: clock.Now(), CompletedAt: clock.Now(), Status: "COMPLETED"})

	r.Sweep()
	if r.Len() != 2 {
		t.Errorf("Len() after sweep = %d, want 2", r.Len())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	r := New()
	r.Stop()
	r.Stop()
}
