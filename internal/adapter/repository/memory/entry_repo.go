// Package memory holds process-local repositories used for development,
// single-node deployments and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/usecase"
)

// EntryRepository keeps entries in a map guarded by a RWMutex.
type EntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.Entry
	idGen   usecase.IDGenerator
	now     func() time.Time
}

// NewEntryRepository creates an empty EntryRepository.
func NewEntryRepository(idGen usecase.IDGenerator) *EntryRepository {
	return &EntryRepository{
		entries: make(map[string]*domain.Entry),
		idGen:   idGen,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Append stores a copy of entry with a fresh ID and timestamp.
func (r *EntryRepository) Append(ctx context.Context, entry *domain.Entry) (*domain.Entry, error) {
	stored := *entry
	stored.ID = r.idGen.Generate()
	stored.CreatedAt = r.now()
	stored.Deleted = false
	stored.DeletedAt = nil

	r.mu.Lock()
	r.entries[stored.ID] = &stored
	r.mu.Unlock()

	return clone(&stored), nil
}

// ListActive returns matching entries ordered by creation time.
func (r *EntryRepository) ListActive(ctx context.Context, filter domain.EntryFilter) ([]*domain.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Entry, 0)
	for _, e := range r.entries {
		if filter.Matches(e) {
			out = append(out, clone(e))
		}
	}
	sortByCreated(out)
	return out, nil
}

// GetByID returns an entry whether or not it is deleted.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return clone(e), nil
}

// SoftDelete marks an active entry deleted.
func (r *EntryRepository) SoftDelete(ctx context.Context, id string, at time.Time) (*domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	if e.Deleted {
		return nil, domain.ErrEntryAlreadyDeleted
	}

	markDeleted(e, at)
	return clone(e), nil
}

// SoftDeleteMatching deletes every active entry matching filter under a
// single write lock.
func (r *EntryRepository) SoftDeleteMatching(ctx context.Context, filter domain.EntryFilter, at time.Time) ([]*domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Entry, 0)
	for _, e := range r.entries {
		if filter.Matches(e) {
			markDeleted(e, at)
			out = append(out, clone(e))
		}
	}
	sortByCreated(out)
	return out, nil
}

// UpdateDescription replaces the memo of an active entry.
func (r *EntryRepository) UpdateDescription(ctx context.Context, id, description string) (*domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	if e.Deleted {
		return nil, domain.ErrEntryAlreadyDeleted
	}

	e.Description = description
	return clone(e), nil
}

func markDeleted(e *domain.Entry, at time.Time) {
	e.Deleted = true
	e.DeletedAt = &at
}

func clone(e *domain.Entry) *domain.Entry {
	c := *e
	if e.DeletedAt != nil {
		at := *e.DeletedAt
		c.DeletedAt = &at
	}
	return &c
}

func sortByCreated(entries []*domain.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
