package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/ioutracker/internal/domain"
)

// UserUseCase handles user registration.
type UserUseCase struct {
	userRepo UserRepository
	now      func() time.Time
}

// NewUserUseCase creates a new user use case
func NewUserUseCase(userRepo UserRepository) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateUserInput represents input for registering a user
type CreateUserInput struct {
	ConversationID any
	Username       string
}

// CreateUser registers a new user. Duplicate usernames fail with ErrUserExists.
func (uc *UserUseCase) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	username, err := domain.NormalizeIdentity(input.Username)
	if err != nil {
		return nil, err
	}

	conversationID, err := optionalConversationID(input.ConversationID)
	if err != nil {
		return nil, err
	}

	existing, err := uc.userRepo.GetByUsername(ctx, username)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrUserExists
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, err
	}

	now := uc.now()
	user := &domain.User{
		Username:       username,
		ConversationID: conversationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// GetUser retrieves a user by username
func (uc *UserUseCase) GetUser(ctx context.Context, username string) (*domain.User, error) {
	username, err := domain.NormalizeIdentity(username)
	if err != nil {
		return nil, err
	}

	return uc.userRepo.GetByUsername(ctx, username)
}

// UpdateUserInput represents input for updating a user
type UpdateUserInput struct {
	ConversationID any
	Username       string
}

// UpdateUser replaces the user's conversation link.
func (uc *UserUseCase) UpdateUser(ctx context.Context, input UpdateUserInput) (*domain.User, error) {
	user, err := uc.GetUser(ctx, input.Username)
	if err != nil {
		return nil, err
	}

	conversationID, err := optionalConversationID(input.ConversationID)
	if err != nil {
		return nil, err
	}

	user.ConversationID = conversationID
	user.UpdatedAt = uc.now()

	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// ListUsers lists all registered users
func (uc *UserUseCase) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return uc.userRepo.List(ctx)
}

func optionalConversationID(v any) (*string, error) {
	id, err := domain.NormalizeConversationID(v)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	return &id, nil
}
