package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ioutracker/internal/domain"
)

// EntryUseCase handles entry business logic.
type EntryUseCase struct {
	entryRepo EntryRepository
	validator domain.Validator
	recorder  Recorder
	now       func() time.Time
}

// NewEntryUseCase creates a new EntryUseCase. A nil recorder disables metrics.
func NewEntryUseCase(entryRepo EntryRepository, validator domain.Validator, recorder Recorder) *EntryUseCase {
	if recorder == nil {
		recorder = NopRecorder{}
	}

	return &EntryUseCase{
		entryRepo: entryRepo,
		validator: validator,
		recorder:  recorder,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateEntryInput represents input for recording a debt.
// AmountText carries free-text input and wins over Amount when set.
type CreateEntryInput struct {
	ConversationID string
	Sender         string
	Recipient      string
	Description    string
	AmountText     string
	Amount         decimal.Decimal
}

// CreateEntry validates and persists a new entry.
func (uc *EntryUseCase) CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.Entry, error) {
	entry, err := uc.validator.ValidateEntry(domain.EntryDraft{
		ConversationID: input.ConversationID,
		Sender:         input.Sender,
		Recipient:      input.Recipient,
		Description:    input.Description,
		AmountText:     input.AmountText,
		Amount:         input.Amount,
	})
	if err != nil {
		uc.recorder.ValidationRejected(rejectionReason(err))
		return nil, err
	}

	created, err := uc.entryRepo.Append(ctx, entry)
	if err != nil {
		return nil, err
	}

	uc.recorder.EntryCreated()
	return created, nil
}

// ListEntriesInput filters the entry listing. User1 alone (or User2 alone)
// selects every entry that user takes part in; both select the pair.
type ListEntriesInput struct {
	ConversationID string
	User1          string
	User2          string
}

// ListEntries lists active entries.
func (uc *EntryUseCase) ListEntries(ctx context.Context, input ListEntriesInput) ([]*domain.Entry, error) {
	filter, err := buildFilter(input.ConversationID, input.User1, input.User2)
	if err != nil {
		return nil, err
	}

	return uc.entryRepo.ListActive(ctx, filter)
}

// GetEntry returns an entry by ID, including soft-deleted ones.
func (uc *EntryUseCase) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	return uc.entryRepo.GetByID(ctx, id)
}

// DeleteEntry soft-deletes a single entry.
func (uc *EntryUseCase) DeleteEntry(ctx context.Context, id string) (*domain.Entry, error) {
	entry, err := uc.entryRepo.SoftDelete(ctx, id, uc.now())
	if err != nil {
		return nil, err
	}

	uc.recorder.EntryDeleted()
	return entry, nil
}

// UpdateDescription replaces the memo on an active entry.
func (uc *EntryUseCase) UpdateDescription(ctx context.Context, id, description string) (*domain.Entry, error) {
	entry, err := uc.entryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Deleted {
		return nil, domain.ErrEntryAlreadyDeleted
	}

	return uc.entryRepo.UpdateDescription(ctx, id, domain.NormalizeDescription(description))
}

func buildFilter(conversationID, user1, user2 string) (domain.EntryFilter, error) {
	var filter domain.EntryFilter

	cid, err := domain.NormalizeConversationID(conversationID)
	if err != nil {
		return filter, err
	}
	filter.ConversationID = cid

	a, err := optionalIdentity(user1)
	if err != nil {
		return filter, err
	}
	b, err := optionalIdentity(user2)
	if err != nil {
		return filter, err
	}

	switch {
	case a != "" && b != "":
		filter.Pair = &domain.Pair{A: a, B: b}
	case a != "":
		filter.Participant = a
	case b != "":
		filter.Participant = b
	}

	return filter, nil
}

func optionalIdentity(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	return domain.NormalizeIdentity(name)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAmountFormat):
		return "amount_format"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "amount"
	case errors.Is(err, domain.ErrAmountOutOfRange):
		return "amount_range"
	case errors.Is(err, domain.ErrSelfEntry):
		return "self_entry"
	case errors.Is(err, domain.ErrInvalidIdentity):
		return "identity"
	case errors.Is(err, domain.ErrInvalidConversationID):
		return "conversation"
	case errors.Is(err, domain.ErrInsufficientParticipants):
		return "participants"
	default:
		return "other"
	}
}
