package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MinSplitParticipants is the smallest group a bill can be split across.
const MinSplitParticipants = 2

// SplitRequest declares a bill fronted by Payer and shared evenly.
// Participants normally include the payer.
type SplitRequest struct {
	ConversationID string
	Payer          string
	Description    string
	Participants   []string
	Total          decimal.Decimal
}

// SplitAllocation is the outcome of AllocateSplit. Drafts must still go
// through the regular entry validation and creation path.
type SplitAllocation struct {
	Participants []string
	Drafts       []EntryDraft
	PerShare     decimal.Decimal
	Total        decimal.Decimal
}

// AllocateSplit divides Total evenly across participants, rounding each share
// half away from zero to currency scale. The rounded shares are not adjusted
// to sum back to Total. Every participant other than the payer gets one draft
// owing the payer PerShare. Duplicate participants are collapsed.
func AllocateSplit(req SplitRequest) (SplitAllocation, error) {
	if err := ValidateAmount(req.Total); err != nil {
		return SplitAllocation{}, err
	}

	payer, err := NormalizeIdentity(req.Payer)
	if err != nil {
		return SplitAllocation{}, fmt.Errorf("payer: %w", err)
	}

	participants := make([]string, 0, len(req.Participants))
	seen := make(map[string]struct{}, len(req.Participants))
	for _, p := range req.Participants {
		name, err := NormalizeIdentity(p)
		if err != nil {
			return SplitAllocation{}, fmt.Errorf("participant: %w", err)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		participants = append(participants, name)
	}

	if len(participants) < MinSplitParticipants {
		return SplitAllocation{}, ErrInsufficientParticipants
	}

	perShare := req.Total.Div(decimal.NewFromInt(int64(len(participants)))).Round(CurrencyScale)
	description := SplitDescription(req.Description, req.Total, participants)

	drafts := make([]EntryDraft, 0, len(participants))
	for _, p := range participants {
		if p == payer {
			continue
		}
		drafts = append(drafts, EntryDraft{
			ConversationID: req.ConversationID,
			Sender:         p,
			Recipient:      payer,
			Amount:         perShare,
			Description:    description,
		})
	}

	return SplitAllocation{
		Participants: participants,
		Drafts:       drafts,
		PerShare:     perShare,
		Total:        req.Total,
	}, nil
}

// SplitDescription annotates a memo with the bill total and participants.
func SplitDescription(memo string, total decimal.Decimal, participants []string) string {
	return fmt.Sprintf("Split: %s | Total: $%s | Participants: %s",
		strings.TrimSpace(memo), total.StringFixed(CurrencyScale), strings.Join(participants, ", "))
}
