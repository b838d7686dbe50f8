package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ioutracker/internal/adapter/repository/sqlfilter"
	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/usecase"
)

const entryColumns = `id, conversation_id, sender, recipient, amount, description, created_at, deleted, deleted_at`

// EntryRepository implements usecase.EntryRepository and
// usecase.MatchingDeleter on SQLite.
type EntryRepository struct {
	db    *sql.DB
	idGen usecase.IDGenerator
	now   func() time.Time
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db *sql.DB, idGen usecase.IDGenerator) *EntryRepository {
	return &EntryRepository{
		db:    db,
		idGen: idGen,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *EntryRepository) Append(ctx context.Context, entry *domain.Entry) (*domain.Entry, error) {
	stored := *entry
	stored.ID = r.idGen.Generate()
	stored.CreatedAt = r.now()
	stored.Deleted = false
	stored.DeletedAt = nil

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (id, conversation_id, sender, recipient, amount, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stored.ID,
		stored.ConversationID,
		stored.Sender,
		stored.Recipient,
		stored.Amount.String(),
		stored.Description,
		stored.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	return &stored, nil
}

func (r *EntryRepository) ListActive(ctx context.Context, filter domain.EntryFilter) ([]*domain.Entry, error) {
	b := sqlfilter.NewBuilder(sqlfilter.Question).Entry(filter)

	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries`+b.Where()+` ORDER BY created_at, id`, b.Args()...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	return entry, err
}

func (r *EntryRepository) SoftDelete(ctx context.Context, id string, at time.Time) (*domain.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE entries SET deleted = 1, deleted_at = ?
		WHERE id = ? AND deleted = 0
		RETURNING `+entryColumns, at.UnixNano(), id)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missingOrDeleted(ctx, id)
	}
	return entry, err
}

func (r *EntryRepository) SoftDeleteMatching(ctx context.Context, filter domain.EntryFilter, at time.Time) ([]*domain.Entry, error) {
	b := sqlfilter.NewBuilder(sqlfilter.Question, at.UnixNano()).Entry(filter)

	rows, err := r.db.QueryContext(ctx, `UPDATE entries SET deleted = 1, deleted_at = ?`+b.Where()+` RETURNING `+entryColumns, b.Args()...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (r *EntryRepository) UpdateDescription(ctx context.Context, id, description string) (*domain.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE entries SET description = ?
		WHERE id = ? AND deleted = 0
		RETURNING `+entryColumns, description, id)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.missingOrDeleted(ctx, id)
	}
	return entry, err
}

func (r *EntryRepository) missingOrDeleted(ctx context.Context, id string) error {
	var deleted bool
	err := r.db.QueryRowContext(ctx, `SELECT deleted FROM entries WHERE id = ?`, id).Scan(&deleted)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrEntryNotFound
	case err != nil:
		return err
	case deleted:
		return domain.ErrEntryAlreadyDeleted
	default:
		return fmt.Errorf("entry %s changed concurrently", id)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*domain.Entry, error) {
	var (
		e         domain.Entry
		amount    string
		createdAt int64
		deletedAt sql.NullInt64
	)

	err := row.Scan(
		&e.ID,
		&e.ConversationID,
		&e.Sender,
		&e.Recipient,
		&amount,
		&e.Description,
		&createdAt,
		&e.Deleted,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount of entry %s: %w", e.ID, err)
	}
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	if deletedAt.Valid {
		at := time.Unix(0, deletedAt.Int64).UTC()
		e.DeletedAt = &at
	}

	return &e, nil
}

func collectEntries(rows *sql.Rows) ([]*domain.Entry, error) {
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
