package services

import (
	"context"
	"sync"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
)

type trackerEntry struct {
	mu       sync.Mutex
	tracker  *Tracker
	lastUsed time.Time
}

// TrackerRegistry holds one tracker per browser key. Calls for the same
// browser run one at a time, to completion; different browsers run in
// parallel. Idle trackers are evicted from memory by the cleanup worker;
// their state stays in the durable store.
type TrackerRegistry struct {
	state   repositories.KeyedStateStore
	deps    TrackerDeps
	idle    time.Duration
	entries map[string]*trackerEntry
	mu      sync.Mutex
}

// NewTrackerRegistry creates a registry over a shared state backend.
func NewTrackerRegistry(state repositories.KeyedStateStore, deps TrackerDeps, idleTimeout time.Duration) *TrackerRegistry {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	return &TrackerRegistry{
		state:   state,
		deps:    deps,
		idle:    idleTimeout,
		entries: make(map[string]*trackerEntry),
	}
}

// With runs fn against the tracker of key while holding that browser's lock.
func (r *TrackerRegistry) With(ctx context.Context, key string, fn func(*Tracker) error) error {
	entry := r.entry(key)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	err := fn(entry.tracker)

	r.mu.Lock()
	entry.lastUsed = r.deps.Clock.Now()
	r.mu.Unlock()
	return err
}

func (r *TrackerRegistry) entry(key string) *trackerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok {
		entry = &trackerEntry{
			tracker:  NewTracker(key, repositories.Scope(r.state, key), r.deps),
			lastUsed: r.deps.Clock.Now(),
		}
		r.entries[key] = entry
		r.deps.Metrics.SetActiveTrackers(len(r.entries))
		return entry
	}
	entry.lastUsed = r.deps.Clock.Now()
	return entry
}

// ActiveTrackers returns the number of trackers held in memory.
func (r *TrackerRegistry) ActiveTrackers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// EvictIdle drops trackers unused for longer than the idle timeout. A tracker
// that is busy is skipped. It returns the number evicted.
func (r *TrackerRegistry) EvictIdle() int {
	now := r.deps.Clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key, entry := range r.entries {
		if now.Sub(entry.lastUsed) <= r.idle {
			continue
		}
		if !entry.mu.TryLock() {
			continue
		}
		delete(r.entries, key)
		entry.mu.Unlock()
		evicted++
	}
	if evicted > 0 {
		r.deps.Metrics.SetActiveTrackers(len(r.entries))
	}
	return evicted
}

// StartCleanup evicts idle trackers every interval until ctx is cancelled.
func (r *TrackerRegistry) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.deps.Logger.System().Info("Tracker cleanup worker started", "interval", interval, "idleTimeout", r.idle)
	for {
		select {
		case <-ctx.Done():
			r.deps.Logger.System().Info("Tracker cleanup worker stopping")
			return
		case <-ticker.C:
			start := time.Now()
			if n := r.EvictIdle(); n > 0 {
				r.deps.Logger.System().Info("Idle trackers evicted",
					"evicted", n,
					"remaining", r.ActiveTrackers(),
					"duration", time.Since(start))
			}
		}
	}
}
