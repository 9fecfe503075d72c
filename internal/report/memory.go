package report

import (
	"context"
	"slices"
	"sync"
)

// DefaultMemoryLimit is how many runs a MemoryRepository keeps by default.
const DefaultMemoryLimit = 32

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps run history for the lifetime of the process only.
// It backs the run flow when no history database is configured, so a run is
// saved and its summary read back the same way in both setups. Runs are kept
// newest first; past the limit the oldest run is evicted.
type MemoryRepository struct {
	mu    sync.RWMutex
	runs  []*Run
	limit int
}

// NewMemoryRepository creates a MemoryRepository holding at most limit runs.
// A limit of zero or less means DefaultMemoryLimit.
func NewMemoryRepository(limit int) *MemoryRepository {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &MemoryRepository{limit: limit}
}

// Save stores a snapshot of run, replacing an earlier snapshot with the same ID.
func (r *MemoryRepository) Save(_ context.Context, run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = slices.DeleteFunc(r.runs, func(existing *Run) bool { return existing.ID == run.ID })
	at, _ := slices.BinarySearchFunc(r.runs, run, newestFirst)
	r.runs = slices.Insert(r.runs, at, run.Clone())
	if len(r.runs) > r.limit {
		r.runs = r.runs[:r.limit]
	}
	return nil
}

// FindByID returns a snapshot of the run with the given ID.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.index(id)
	if i < 0 {
		return nil, ErrRunNotFound
	}
	return r.runs[i].Clone(), nil
}

// List returns snapshots of the kept runs, most recent first.
func (r *MemoryRepository) List(_ context.Context) ([]*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Run, len(r.runs))
	for i, run := range r.runs {
		result[i] = run.Clone()
	}
	return result, nil
}

// Delete forgets a run.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return ErrRunNotFound
	}
	r.runs = slices.Delete(r.runs, i, i+1)
	return nil
}

func (r *MemoryRepository) index(id string) int {
	return slices.IndexFunc(r.runs, func(run *Run) bool { return run.ID == id })
}

// newestFirst orders runs by start time descending, then by ID descending.
func newestFirst(a, b *Run) int {
	if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}
