package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/ioutracker/internal/domain"
)

// SplitUseCase turns a shared bill into per-participant entries.
type SplitUseCase struct {
	entries  *EntryUseCase
	recorder Recorder
}

// NewSplitUseCase creates a new SplitUseCase. Generated shares go through
// entries.CreateEntry like any manual entry.
func NewSplitUseCase(entries *EntryUseCase, recorder Recorder) *SplitUseCase {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &SplitUseCase{entries: entries, recorder: recorder}
}

// SplitInput represents a bill paid by Payer and shared by Participants.
type SplitInput struct {
	ConversationID string
	Payer          string
	Description    string
	TotalText      string
	Participants   []string
	Total          decimal.Decimal
}

// SplitResult reports the allocation and the entries it produced.
type SplitResult struct {
	Participants []string
	Entries      []*domain.Entry
	PerShare     decimal.Decimal
	Total        decimal.Decimal
}

// Split allocates the bill and records one entry per non-payer participant.
// If a share fails to persist the entries created so far are returned with
// the error.
func (uc *SplitUseCase) Split(ctx context.Context, input SplitInput) (*SplitResult, error) {
	total := input.Total
	if input.TotalText != "" {
		parsed, err := domain.ParseAmount(input.TotalText)
		if err != nil {
			uc.recorder.ValidationRejected(rejectionReason(err))
			return nil, err
		}
		total = parsed
	}

	alloc, err := domain.AllocateSplit(domain.SplitRequest{
		ConversationID: input.ConversationID,
		Payer:          input.Payer,
		Description:    input.Description,
		Participants:   input.Participants,
		Total:          total,
	})
	if err != nil {
		uc.recorder.ValidationRejected(rejectionReason(err))
		return nil, err
	}

	result := &SplitResult{
		Participants: alloc.Participants,
		PerShare:     alloc.PerShare,
		Total:        alloc.Total,
		Entries:      make([]*domain.Entry, 0, len(alloc.Drafts)),
	}

	for i, d := range alloc.Drafts {
		entry, err := uc.entries.CreateEntry(ctx, CreateEntryInput{
			ConversationID: d.ConversationID,
			Sender:         d.Sender,
			Recipient:      d.Recipient,
			Description:    d.Description,
			Amount:         d.Amount,
		})
		if err != nil {
			return result, fmt.Errorf("split share %d of %d: %w", i+1, len(alloc.Drafts), err)
		}
		result.Entries = append(result.Entries, entry)
	}

	uc.recorder.SplitAllocated(len(result.Entries))
	return result, nil
}
