package cached

import (
	"context"

	"github.com/iho/ioutracker/internal/domain"
	"github.com/iho/ioutracker/internal/usecase"
)

// UserRepository caches users by username.
type UserRepository struct {
	next usecase.UserRepository
	opts Options
}

// NewUserRepository wraps next.
func NewUserRepository(next usecase.UserRepository, opts Options) *UserRepository {
	return &UserRepository{next: next, opts: opts.withDefaults()}
}

func userKey(username string) string { return "user:" + username }

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := r.next.Create(ctx, user); err != nil {
		return err
	}
	r.opts.store(ctx, userKey(user.Username), user)
	return nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if r.opts.load(ctx, "users", userKey(username), &user) {
		return &user, nil
	}

	found, err := r.next.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	r.opts.store(ctx, userKey(username), found)
	return found, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := r.next.Update(ctx, user); err != nil {
		return err
	}
	r.opts.invalidate(ctx, userKey(user.Username))
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	return r.next.List(ctx)
}
