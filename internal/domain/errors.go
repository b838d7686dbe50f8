package domain

import "errors"

var (
	// Entry errors
	ErrEntryNotFound       = errors.New("entry not found")
	ErrEntryAlreadyDeleted = errors.New("entry already deleted")
	ErrSelfEntry           = errors.New("sender and recipient must differ")

	// Amount errors
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidAmountFormat = errors.New("invalid characters in amount")
	ErrAmountOutOfRange    = errors.New("amount exceeds supported precision or size")

	// Identity errors
	ErrInvalidIdentity       = errors.New("invalid identity")
	ErrInvalidConversationID = errors.New("invalid conversation id")

	// Balance and split errors
	ErrNoRelationship           = errors.New("no transactions found between users")
	ErrInsufficientParticipants = errors.New("at least two participants are required for a split")

	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)
