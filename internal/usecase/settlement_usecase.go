package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/ioutracker/internal/domain"
)

// SettlementMode selects how entries are retired.
type SettlementMode string

const (
	// SettlementBestEffort reads the pair, then soft-deletes entries one by
	// one. Entries appended between the read and the deletes survive.
	SettlementBestEffort SettlementMode = "best_effort"
	// SettlementAtomic soft-deletes the pair with one conditional statement
	// and nets exactly the rows it retired.
	SettlementAtomic SettlementMode = "atomic"
)

// ErrAtomicSettlementUnsupported is returned when atomic mode is requested
// against a store without a MatchingDeleter.
var ErrAtomicSettlementUnsupported = errors.New("entry store does not support atomic settlement")

// ParseSettlementMode parses a configured mode; empty means best effort.
func ParseSettlementMode(s string) (SettlementMode, error) {
	switch SettlementMode(s) {
	case "", SettlementBestEffort:
		return SettlementBestEffort, nil
	case SettlementAtomic:
		return SettlementAtomic, nil
	default:
		return "", fmt.Errorf("unknown settlement mode %q", s)
	}
}

// SettlementUseCase zeroes out the relationship between two users.
type SettlementUseCase struct {
	entryRepo EntryRepository
	deleter   MatchingDeleter
	recorder  Recorder
	logger    zerolog.Logger
	mode      SettlementMode
	now       func() time.Time
}

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(entryRepo EntryRepository, mode SettlementMode, logger zerolog.Logger, recorder Recorder) (*SettlementUseCase, error) {
	if recorder == nil {
		recorder = NopRecorder{}
	}

	uc := &SettlementUseCase{
		entryRepo: entryRepo,
		recorder:  recorder,
		logger:    logger.With().Str("component", "settlement").Logger(),
		mode:      mode,
		now:       func() time.Time { return time.Now().UTC() },
	}

	if mode == SettlementAtomic {
		deleter, ok := entryRepo.(MatchingDeleter)
		if !ok {
			return nil, ErrAtomicSettlementUnsupported
		}
		uc.deleter = deleter
	}

	return uc, nil
}

// SettleInput identifies the pair to settle.
type SettleInput struct {
	ConversationID string
	User1          string
	User2          string
}

// SettlementResult reports how many entries were retired and the balance
// they represented before deletion. Balance is zero-valued when there was
// nothing to settle.
type SettlementResult struct {
	Message string
	Balance domain.Balance
	Settled int
	Failed  int
}

// Settle retires every active entry between the pair. Having nothing to
// settle is a successful outcome. In best-effort mode a failed deletion is
// logged and skipped; Settled counts only the deletions that succeeded.
func (uc *SettlementUseCase) Settle(ctx context.Context, input SettleInput) (*SettlementResult, error) {
	a, b, err := normalizePair(input.User1, input.User2)
	if err != nil {
		return nil, err
	}

	filter, err := buildFilter(input.ConversationID, a, b)
	if err != nil {
		return nil, err
	}

	var result *SettlementResult
	if uc.mode == SettlementAtomic {
		result, err = uc.settleAtomic(ctx, filter, a, b)
	} else {
		result, err = uc.settleBestEffort(ctx, filter, a, b)
	}
	if err != nil {
		return nil, err
	}

	uc.recorder.SettlementCompleted(uc.mode, result.Settled, result.Failed)
	return result, nil
}

func (uc *SettlementUseCase) settleBestEffort(ctx context.Context, filter domain.EntryFilter, a, b string) (*SettlementResult, error) {
	entries, err := uc.entryRepo.ListActive(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nothingToSettle(a, b), nil
	}

	balance, err := domain.BalanceBetween(entries, a, b)
	if err != nil {
		return nil, err
	}

	result := &SettlementResult{Balance: balance.Rounded()}
	at := uc.now()

	for _, e := range entries {
		if _, err := uc.entryRepo.SoftDelete(ctx, e.ID, at); err != nil {
			uc.logger.Error().
				Err(err).
				Str("entry_id", e.ID).
				Str("user1", a).
				Str("user2", b).
				Msg("failed to soft-delete entry during settlement")
			result.Failed++
			continue
		}
		result.Settled++
	}

	if result.Failed > 0 {
		uc.logger.Warn().
			Int("settled", result.Settled).
			Int("failed", result.Failed).
			Msg("settlement completed partially")
	}

	result.Message = settledMessage(result.Settled, a, b)
	return result, nil
}

func (uc *SettlementUseCase) settleAtomic(ctx context.Context, filter domain.EntryFilter, a, b string) (*SettlementResult, error) {
	deleted, err := uc.deleter.SoftDeleteMatching(ctx, filter, uc.now())
	if err != nil {
		return nil, err
	}
	if len(deleted) == 0 {
		return nothingToSettle(a, b), nil
	}

	balance, err := domain.BalanceBetween(deleted, a, b)
	if err != nil {
		return nil, err
	}

	return &SettlementResult{
		Message: settledMessage(len(deleted), a, b),
		Balance: balance.Rounded(),
		Settled: len(deleted),
	}, nil
}

func nothingToSettle(a, b string) *SettlementResult {
	return &SettlementResult{
		Message: fmt.Sprintf("No transactions found between %s and %s", a, b),
	}
}

func settledMessage(n int, a, b string) string {
	return fmt.Sprintf("Settled %d transactions between %s and %s", n, a, b)
}
