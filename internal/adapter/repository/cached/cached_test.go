package cached

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/ioutracker/internal/adapter/repository/memory"
	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/usecase"
)

type seqGen struct{ n int }

func (g *seqGen) Generate() string {
	g.n++
	return fmt.Sprintf("e%d", g.n)
}

type countingStats struct{ hits, misses map[string]int }

func newCountingStats() *countingStats {
	return &countingStats{hits: map[string]int{}, misses: map[string]int{}}
}

func (s *countingStats) CacheHit(name string)  { s.hits[name]++ }
func (s *countingStats) CacheMiss(name string) { s.misses[name]++ }

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (brokenCache) Delete(context.Context, string) error { return errors.New("connection refused") }

// hookCache runs beforeSet once, ahead of the first Set.
type hookCache struct {
	usecase.Cache
	beforeSet func()
}

func (c *hookCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	return c.Cache.Set(ctx, key, value, ttl)
}

func newEntry(sender, recipient string, amount int64) *domain.Entry {
	return &domain.Entry{Sender: sender, Recipient: recipient, Amount: decimal.NewFromInt(amount)}
}

func TestEntryRepository_CachesUnfilteredListing(t *testing.T) {
	ctx := context.Background()
	stats := newCountingStats()
	cache := memory.NewCache()
	repo := NewEntryRepository(memory.NewEntryRepository(&seqGen{}), Options{Cache: cache, Stats: stats, Logger: zerolog.Nop()})

	_, err := repo.Append(ctx, newEntry("alice", "bob", 10))
	require.NoError(t, err)

	first, err := repo.ListActive(ctx, domain.EntryFilter{})
	require.NoError(t, err)
	second, err := repo.ListActive(ctx, domain.EntryFilter{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.misses["entries"])
	assert.Equal(t, 1, stats.hits["entries"])
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, first[0].Amount.Equal(second[0].Amount))

	_, err = cache.Get(ctx, allEntriesKey)
	require.NoError(t, err)
}

func TestEntryRepository_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewCache()
	repo := NewEntryRepository(memory.NewEntryRepository(&seqGen{}), Options{Cache: cache, Logger: zerolog.Nop()})

	e, err := repo.Append(ctx, newEntry("alice", "bob", 10))
	require.NoError(t, err)
	_, err = repo.ListActive(ctx, domain.EntryFilter{})
	require.NoError(t, err)

	_, err = repo.SoftDelete(ctx, e.ID, time.Now())
	require.NoError(t, err)

	_, err = cache.Get(ctx, allEntriesKey)
	assert.ErrorIs(t, err, usecase.ErrCacheMiss)

	list, err := repo.ListActive(ctx, domain.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEntryRepository_FilteredReadsBypassCache(t *testing.T) {
	ctx := context.Background()
	stats := newCountingStats()
	repo := NewEntryRepository(memory.NewEntryRepository(&seqGen{}), Options{Cache: memory.NewCache(), Stats: stats, Logger: zerolog.Nop()})

	_, err := repo.Append(ctx, newEntry("alice", "bob", 10))
	require.NoError(t, err)

	filter := domain.EntryFilter{Pair: &domain.Pair{A: "alice", B: "bob"}}
	list, err := repo.ListActive(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Zero(t, stats.hits["entries"]+stats.misses["entries"])
}

func TestEntryRepository_BrokenCacheFallsThrough(t *testing.T) {
	ctx := context.Background()
	repo := NewEntryRepository(memory.NewEntryRepository(&seqGen{}), Options{Cache: brokenCache{}, Logger: zerolog.Nop()})

	_, err := repo.Append(ctx, newEntry("alice", "bob", 10))
	require.NoError(t, err)

	list, err := repo.ListActive(ctx, domain.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWrapEntries_KeepsMatchingDeleter(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewCache()
	wrapped := WrapEntries(memory.NewEntryRepository(&seqGen{}), Options{Cache: cache, Logger: zerolog.Nop()})

	deleter, ok := wrapped.(usecase.MatchingDeleter)
	require.True(t, ok)

	_, err := wrapped.Append(ctx, newEntry("alice", "bob", 10))
	require.NoError(t, err)
	_, err = wrapped.ListActive(ctx, domain.EntryFilter{})
	require.NoError(t, err)

	deleted, err := deleter.SoftDeleteMatching(ctx, domain.EntryFilter{Pair: &domain.Pair{A: "bob", B: "alice"}}, time.Now())
	require.NoError(t, err)
	assert.Len(t, deleted, 1)

	_, err = cache.Get(ctx, allEntriesKey)
	assert.ErrorIs(t, err, usecase.ErrCacheMiss)
}

type plainRepo struct{ usecase.EntryRepository }

func TestWrapEntries_PlainStore(t *testing.T) {
	wrapped := WrapEntries(plainRepo{memory.NewEntryRepository(&seqGen{})}, Options{Cache: memory.NewCache()})
	_, ok := wrapped.(usecase.MatchingDeleter)
	assert.False(t, ok)
}

func TestUserRepository_ReadThroughAndRefresh(t *testing.T) {
	ctx := context.Background()
	stats := newCountingStats()
	cache := memory.NewCache()
	repo := NewUserRepository(memory.NewUserRepository(), Options{Cache: cache, Stats: stats, Logger: zerolog.Nop()})

	require.NoError(t, repo.Create(ctx, &domain.User{Username: "alice"}))

	u, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, 1, stats.hits["users"])

	chat := "42"
	require.NoError(t, repo.Update(ctx, &domain.User{Username: "alice", ConversationID: &chat}))

	u, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u.ConversationID)
	assert.Equal(t, "42", *u.ConversationID)
	assert.Equal(t, 1, stats.misses["users"])
}

func TestUserRepository_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewCache()
	repo := NewUserRepository(memory.NewUserRepository(), Options{Cache: cache, Logger: zerolog.Nop()})

	_, err := repo.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = cache.Get(ctx, userKey("ghost"))
	assert.ErrorIs(t, err, usecase.ErrCacheMiss)
}

func TestEntryRepository_ListingOverlappingWriteIsNotCached(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewCache()
	cache := &hookCache{Cache: backing}
	repo := NewEntryRepository(memory.NewEntryRepository(&seqGen{}), Options{Cache: cache, Logger: zerolog.Nop()})

	_, err := repo.Append(ctx, newEntry("alice", "bob", 10))
	require.NoError(t, err)

	// A write lands between the reader's store query and its cache fill.
	cache.beforeSet = func() {
		_, err := repo.Append(ctx, newEntry("bob", "alice", 3))
		require.NoError(t, err)
	}

	stale, err := repo.ListActive(ctx, domain.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, stale, 1)

	_, err = backing.Get(ctx, allEntriesKey)
	assert.ErrorIs(t, err, usecase.ErrCacheMiss)

	fresh, err := repo.ListActive(ctx, domain.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}
