package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/ioutracker/internal/domain"
)

// EntryRepository is the ledger store. Implementations assign ID and
// CreatedAt on Append and never physically remove rows.
type EntryRepository interface {
	Append(ctx context.Context, entry *domain.Entry) (*domain.Entry, error)
	ListActive(ctx context.Context, filter domain.EntryFilter) ([]*domain.Entry, error)
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	// SoftDelete fails with ErrEntryNotFound or ErrEntryAlreadyDeleted.
	SoftDelete(ctx context.Context, id string, at time.Time) (*domain.Entry, error)
	UpdateDescription(ctx context.Context, id, description string) (*domain.Entry, error)
}

// MatchingDeleter is implemented by stores that can soft-delete every active
// entry matching a filter in a single conditional statement.
type MatchingDeleter interface {
	SoftDeleteMatching(ctx context.Context, filter domain.EntryFilter, at time.Time) ([]*domain.Entry, error)
}

// UserRepository defines data access for registered users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	List(ctx context.Context) ([]*domain.User, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ErrCacheMiss is returned by Cache.Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// Recorder receives domain events for metrics.
type Recorder interface {
	EntryCreated()
	EntryDeleted()
	ValidationRejected(reason string)
	SplitAllocated(shares int)
	SettlementCompleted(mode SettlementMode, settled, failed int)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) EntryCreated() {}
func (NopRecorder) EntryDeleted() {}
func (NopRecorder) ValidationRejected(string) {}
func (NopRecorder) SplitAllocated(int) {}
func (NopRecorder) SettlementCompleted(SettlementMode, int, int) {}
