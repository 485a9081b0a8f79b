package repository

import (
	"context"

	"feather-planner/internal/domain"
)

// UserRepository holds accounts and their open session sets.
type UserRepository interface {
	// Create assigns a fresh unique ID to user and stores it. It fails with
	// domain.ErrDuplicateIdentity when the email or username is already taken.
	Create(ctx context.Context, user *domain.User) (uint32, error)
	GetByID(ctx context.Context, id uint32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	// OpenSession mints the user's next session sequence number and marks it valid.
	OpenSession(ctx context.Context, userID uint32) (uint64, error)
	// CloseSession invalidates a session. Closing a session that is not open fails
	// with domain.ErrSessionInvalid.
	CloseSession(ctx context.Context, session domain.Session) error
	HasSession(ctx context.Context, session domain.Session) (bool, error)
	Export(ctx context.Context) ([]domain.User, error)
	Restore(ctx context.Context, users []domain.User) error
}
