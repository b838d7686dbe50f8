package usecase

import (
	"context"
	"fmt"

	"github.com/iho/ioutracker/internal/domain"
)

// BalanceUseCase answers "who owes whom" for a pair.
type BalanceUseCase struct {
	entryRepo EntryRepository
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(entryRepo EntryRepository) *BalanceUseCase {
	return &BalanceUseCase{entryRepo: entryRepo}
}

// GetBalanceInput identifies the pair.
type GetBalanceInput struct {
	ConversationID string
	User1          string
	User2          string
}

// GetBalance returns the rounded net balance between two users. It returns
// domain.ErrNoRelationship when the pair has no active entries.
func (uc *BalanceUseCase) GetBalance(ctx context.Context, input GetBalanceInput) (domain.Balance, error) {
	a, b, err := normalizePair(input.User1, input.User2)
	if err != nil {
		return domain.Balance{}, err
	}

	filter, err := buildFilter(input.ConversationID, a, b)
	if err != nil {
		return domain.Balance{}, err
	}

	entries, err := uc.entryRepo.ListActive(ctx, filter)
	if err != nil {
		return domain.Balance{}, err
	}

	balance, err := domain.BalanceBetween(entries, a, b)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("%w: %s and %s", err, a, b)
	}

	return balance.Rounded(), nil
}

func normalizePair(user1, user2 string) (string, string, error) {
	a, err := domain.NormalizeIdentity(user1)
	if err != nil {
		return "", "", fmt.Errorf("user1: %w", err)
	}
	b, err := domain.NormalizeIdentity(user2)
	if err != nil {
		return "", "", fmt.Errorf("user2: %w", err)
	}
	return a, b, nil
}
