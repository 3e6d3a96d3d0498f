package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/qcsim/qcsim/pkg/compute"
	"github.com/qcsim/qcsim/pkg/types"
)

// Evaluation is one engine run requested through the server.
type Evaluation struct {
	ID          string          `json:"id"`
	Team        string          `json:"team"`
	Preset      string          `json:"preset,omitempty"`
	Policy      types.Policy    `json:"policy"`
	Result      *compute.Result `json:"metrics"`
	EvaluatedAt time.Time       `json:"evaluated_at"`
}

// Entry is an evaluation together with the time it was stored.
type Entry struct {
	Evaluation *Evaluation
	UpdatedAt  time.Time
}

// Store is a thread-safe in-memory evaluation store, keyed by team.
// A background goroutine (Run) periodically evicts entries that have not
// been updated within the configured TTL.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores or replaces the evaluation for ev.Team.
// Callers must not modify ev after calling Put.
func (s *Store) Put(ev *Evaluation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ev.Team] = &Entry{
		Evaluation: ev,
		UpdatedAt:  s.now(),
	}
}

// Get returns the Entry for the given team and whether one was found.
// The entry may be stale if TTL has elapsed.
func (s *Store) Get(team string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[team]
	return e, ok
}

// List returns all entries whose UpdatedAt is within the TTL, ordered by team.
// Stale entries that have not yet been evicted are excluded.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if e.UpdatedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Evaluation.Team < out[j].Evaluation.Team
	})
	return out
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for team, e := range s.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(s.data, team)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL interval
// (minimum 1 second). Run blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale evaluations", "count", n)
			}
		}
	}
}
