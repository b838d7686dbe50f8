package cached

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/usecase"
)

const allEntriesKey = "entries:all"

// EntryRepository caches the unfiltered active listing. Filtered reads,
// which feed balances and settlements, always reach the wrapped store.
type EntryRepository struct {
	next usecase.EntryRepository
	opts Options

	// writes counts completed writes. A listing read that overlapped a
	// write is dropped from the cache after it is stored.
	writes atomic.Uint64
}

// NewEntryRepository wraps next.
func NewEntryRepository(next usecase.EntryRepository, opts Options) *EntryRepository {
	return &EntryRepository{next: next, opts: opts.withDefaults()}
}

func (r *EntryRepository) Append(ctx context.Context, entry *domain.Entry) (*domain.Entry, error) {
	created, err := r.next.Append(ctx, entry)
	if err != nil {
		return nil, err
	}
	r.written(ctx)
	return created, nil
}

func (r *EntryRepository) ListActive(ctx context.Context, filter domain.EntryFilter) ([]*domain.Entry, error) {
	if !filter.IsZero() {
		return r.next.ListActive(ctx, filter)
	}

	var entries []*domain.Entry
	if r.opts.load(ctx, "entries", allEntriesKey, &entries) {
		return entries, nil
	}

	before := r.writes.Load()
	entries, err := r.next.ListActive(ctx, filter)
	if err != nil {
		return nil, err
	}
	r.opts.store(ctx, allEntriesKey, entries)
	if r.writes.Load() != before {
		r.opts.invalidate(ctx, allEntriesKey)
	}
	return entries, nil
}

func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	return r.next.GetByID(ctx, id)
}

func (r *EntryRepository) SoftDelete(ctx context.Context, id string, at time.Time) (*domain.Entry, error) {
	entry, err := r.next.SoftDelete(ctx, id, at)
	if err != nil {
		return nil, err
	}
	r.written(ctx)
	return entry, nil
}

func (r *EntryRepository) UpdateDescription(ctx context.Context, id, description string) (*domain.Entry, error) {
	entry, err := r.next.UpdateDescription(ctx, id, description)
	if err != nil {
		return nil, err
	}
	r.written(ctx)
	return entry, nil
}

func (r *EntryRepository) written(ctx context.Context) {
	r.writes.Add(1)
	r.opts.invalidate(ctx, allEntriesKey)
}

// AtomicEntryRepository adds SoftDeleteMatching for stores that support it.
type AtomicEntryRepository struct {
	*EntryRepository
	deleter usecase.MatchingDeleter
}

// SoftDeleteMatching forwards to the wrapped store.
func (r *AtomicEntryRepository) SoftDeleteMatching(ctx context.Context, filter domain.EntryFilter, at time.Time) ([]*domain.Entry, error) {
	deleted, err := r.deleter.SoftDeleteMatching(ctx, filter, at)
	if err != nil {
		return nil, err
	}
	if len(deleted) > 0 {
		r.written(ctx)
	}
	return deleted, nil
}

// WrapEntries returns a caching decorator that keeps next's MatchingDeleter
// capability when it has one.
func WrapEntries(next usecase.EntryRepository, opts Options) usecase.EntryRepository {
	base := NewEntryRepository(next, opts)
	if deleter, ok := next.(usecase.MatchingDeleter); ok {
		return &AtomicEntryRepository{EntryRepository: base, deleter: deleter}
	}
	return base
}
