package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/ioutracker/internal/adapter/repository/sqlfilter"
	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/usecase"
)

const entryColumns = `id, conversation_id, sender, recipient, amount::text, description, created_at, deleted, deleted_at`

// EntryRepository implements usecase.EntryRepository and
// usecase.MatchingDeleter on PostgreSQL.
type EntryRepository struct {
	db      DBTX
	idGen   usecase.IDGenerator
	retrier *Retrier
	now     func() time.Time
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db DBTX, idGen usecase.IDGenerator, retrier *Retrier) *EntryRepository {
	return &EntryRepository{
		db:      db,
		idGen:   idGen,
		retrier: retrier,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Append inserts a new entry.
func (r *EntryRepository) Append(ctx context.Context, entry *domain.Entry) (*domain.Entry, error) {
	stored := *entry
	stored.ID = r.idGen.Generate()
	stored.CreatedAt = r.now()
	stored.Deleted = false
	stored.DeletedAt = nil

	query := `
		INSERT INTO entries (id, conversation_id, sender, recipient, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
	`

	err := r.retrier.Retry(ctx, "append", func() error {
		_, err := r.db.Exec(ctx, query,
			stored.ID,
			stored.ConversationID,
			stored.Sender,
			stored.Recipient,
			stored.Amount.String(),
			stored.Description,
			stored.CreatedAt,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	return &stored, nil
}

// ListActive returns non-deleted entries matching filter, oldest first.
func (r *EntryRepository) ListActive(ctx context.Context, filter domain.EntryFilter) ([]*domain.Entry, error) {
	b := sqlfilter.NewBuilder(sqlfilter.Dollar).Entry(filter)
	query := `SELECT ` + entryColumns + ` FROM entries` + b.Where() + ` ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, b.Args()...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// GetByID retrieves an entry, deleted or not.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = $1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	return entry, err
}

// SoftDelete marks an active entry deleted.
func (r *EntryRepository) SoftDelete(ctx context.Context, id string, at time.Time) (*domain.Entry, error) {
	query := `
		UPDATE entries SET deleted = true, deleted_at = $2
		WHERE id = $1 AND deleted = false
		RETURNING ` + entryColumns

	var entry *domain.Entry
	err := r.retrier.Retry(ctx, "soft_delete", func() error {
		var err error
		entry, err = scanEntry(r.db.QueryRow(ctx, query, id, at))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missingOrDeleted(ctx, id)
	}
	return entry, err
}

// SoftDeleteMatching retires every active entry matching filter in one
// statement and returns the rows it changed.
func (r *EntryRepository) SoftDeleteMatching(ctx context.Context, filter domain.EntryFilter, at time.Time) ([]*domain.Entry, error) {
	b := sqlfilter.NewBuilder(sqlfilter.Dollar, at).Entry(filter)
	query := `UPDATE entries SET deleted = true, deleted_at = $1` + b.Where() + ` RETURNING ` + entryColumns

	var entries []*domain.Entry
	err := r.retrier.Retry(ctx, "soft_delete_matching", func() error {
		rows, err := r.db.Query(ctx, query, b.Args()...)
		if err != nil {
			return err
		}
		entries, err = collectEntries(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateDescription replaces the memo of an active entry.
func (r *EntryRepository) UpdateDescription(ctx context.Context, id, description string) (*domain.Entry, error) {
	query := `
		UPDATE entries SET description = $2
		WHERE id = $1 AND deleted = false
		RETURNING ` + entryColumns

	entry, err := scanEntry(r.db.QueryRow(ctx, query, id, description))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missingOrDeleted(ctx, id)
	}
	return entry, err
}

func (r *EntryRepository) missingOrDeleted(ctx context.Context, id string) error {
	var deleted bool
	err := r.db.QueryRow(ctx, `SELECT deleted FROM entries WHERE id = $1`, id).Scan(&deleted)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrEntryNotFound
	case err != nil:
		return err
	case deleted:
		return domain.ErrEntryAlreadyDeleted
	default:
		return fmt.Errorf("entry %s changed concurrently", id)
	}
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		e      domain.Entry
		amount string
	)

	err := row.Scan(
		&e.ID,
		&e.ConversationID,
		&e.Sender,
		&e.Recipient,
		&amount,
		&e.Description,
		&e.CreatedAt,
		&e.Deleted,
		&e.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount of entry %s: %w", e.ID, err)
	}
	return &e, nil
}

func collectEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	defer rows.Close()

	entries := make([]*domain.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
