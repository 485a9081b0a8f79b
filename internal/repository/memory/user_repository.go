package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"feather-planner/internal/domain"
	"feather-planner/internal/repository"
)

// UserRepository keeps accounts in memory, indexed by id, email and username.
type UserRepository struct {
	mu         sync.RWMutex
	users      map[uint32]*domain.User
	byEmail    map[string]uint32
	byUsername map[string]uint32
	logger     logrus.FieldLogger
}

func NewUserRepository(logger logrus.FieldLogger) *UserRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return &UserRepository{
		users:      make(map[uint32]*domain.User),
		byEmail:    make(map[string]uint32),
		byUsername: make(map[string]uint32),
		logger:     logger,
	}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, user *domain.User) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return 0, domain.ErrDuplicateIdentity
	}
	if _, ok := r.byUsername[user.Username]; ok {
		return 0, domain.ErrDuplicateIdentity
	}

	user.ID = randomID(func(id uint32) bool {
		_, ok := r.users[id]
		return ok
	})
	user.Sessions = make(map[uint64]struct{})
	user.NextSession = 0
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	stored := user.Clone()
	r.users[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID
	r.byUsername[stored.Username] = stored.ID

	r.logger.WithField("user_id", stored.ID).Debug("user created")
	return stored.ID, nil
}

func (r *UserRepository) GetByID(_ context.Context, id uint32) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrUserNotFound)
	}
	return user.Clone(), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.users[id].Clone(), nil
}

func (r *UserRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *UserRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byUsername[username]
	return ok, nil
}

func (r *UserRepository) OpenSession(_ context.Context, userID uint32) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return 0, fmt.Errorf("user %d: %w", userID, domain.ErrUserNotFound)
	}
	sid := user.NextSession
	user.NextSession++
	user.Sessions[sid] = struct{}{}

	r.logger.WithFields(logrus.Fields{"user_id": userID, "session_id": sid}).Debug("session opened")
	return sid, nil
}

func (r *UserRepository) CloseSession(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[session.UserID]
	if !ok {
		return domain.ErrSessionInvalid
	}
	if _, open := user.Sessions[session.SessionID]; !open {
		return domain.ErrSessionInvalid
	}
	delete(user.Sessions, session.SessionID)

	r.logger.WithFields(logrus.Fields{"user_id": session.UserID, "session_id": session.SessionID}).Debug("session closed")
	return nil
}

func (r *UserRepository) HasSession(_ context.Context, session domain.Session) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[session.UserID]
	if !ok {
		return false, nil
	}
	_, open := user.Sessions[session.SessionID]
	return open, nil
}

func (r *UserRepository) Export(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, *user.Clone())
	}
	return users, nil
}

// Restore replaces every account with users. It rejects input that would
// break id, email or username uniqueness and leaves the store untouched then.
func (r *UserRepository) Restore(_ context.Context, users []domain.User) error {
	byID := make(map[uint32]*domain.User, len(users))
	byEmail := make(map[string]uint32, len(users))
	byUsername := make(map[string]uint32, len(users))

	for i := range users {
		user := users[i].Clone()
		if _, dup := byID[user.ID]; dup {
			return fmt.Errorf("restore users: duplicate id %d", user.ID)
		}
		if _, dup := byEmail[user.Email]; dup {
			return fmt.Errorf("restore users: duplicate email for id %d", user.ID)
		}
		if _, dup := byUsername[user.Username]; dup {
			return fmt.Errorf("restore users: duplicate username for id %d", user.ID)
		}
		for sid := range user.Sessions {
			if sid >= user.NextSession {
				user.NextSession = sid + 1
			}
		}
		byID[user.ID] = user
		byEmail[user.Email] = user.ID
		byUsername[user.Username] = user.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = byID
	r.byEmail = byEmail
	r.byUsername = byUsername

	r.logger.WithField("users", len(byID)).Info("users restored")
	return nil
}
