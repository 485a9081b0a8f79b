package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"feather-planner/internal/domain"
	"feather-planner/internal/repository"
	"feather-planner/internal/token"
)

// LoginStatus is reported in-band by Login instead of an error.
type LoginStatus int

const (
	LoginOK           LoginStatus = 0
	LoginBadPassword  LoginStatus = 1
	LoginUnknownEmail LoginStatus = 2
)

// Registration is what a successful Register hands back.
type Registration struct {
	UserID uint32
	Token  string
}

// LoginResult carries the outcome of a login attempt. Token is empty unless Status is LoginOK.
type LoginResult struct {
	Status LoginStatus
	Token  string
}

// AccountService describes account and session lifecycle operations.
type AccountService interface {
	Register(ctx context.Context, email, fullname, username, password string) (*Registration, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	CheckToken(ctx context.Context, raw string) (domain.Session, error)
	Logout(ctx context.Context, session domain.Session) error
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Profile(ctx context.Context, userID uint32) (*domain.User, error)
}

type accountService struct {
	users     repository.UserRepository
	signer    *token.Signer
	passwords Passwords
	logger    logrus.FieldLogger
}

func NewAccountService(users repository.UserRepository, signer *token.Signer, passwords Passwords, logger logrus.FieldLogger) AccountService {
	if passwords == nil {
		passwords = plainPasswords{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &accountService{
		users:     users,
		signer:    signer,
		passwords: passwords,
		logger:    logger,
	}
}

func (s *accountService) Register(ctx context.Context, email, fullname, username, password string) (*Registration, error) {
	stored, err := s.passwords.Store(password)
	if err != nil {
		return nil, err
	}

	userID, err := s.users.Create(ctx, &domain.User{
		Email:    email,
		FullName: fullname,
		Username: username,
		Password: stored,
	})
	if err != nil {
		return nil, err
	}

	tok, err := s.openSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", userID).Info("user registered")
	return &Registration{UserID: userID, Token: tok}, nil
}

func (s *accountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return &LoginResult{Status: LoginUnknownEmail}, nil
		}
		return nil, err
	}

	if !s.passwords.Matches(user.Password, password) {
		s.logger.WithField("user_id", user.ID).Info("login rejected: bad password")
		return &LoginResult{Status: LoginBadPassword}, nil
	}

	tok, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Status: LoginOK, Token: tok}, nil
}

func (s *accountService) openSession(ctx context.Context, userID uint32) (string, error) {
	sid, err := s.users.OpenSession(ctx, userID)
	if err != nil {
		return "", err
	}
	tok, err := s.signer.Sign(domain.Session{UserID: userID, SessionID: sid})
	if err != nil {
		// the session was never handed out; do not leave it open
		_ = s.users.CloseSession(ctx, domain.Session{UserID: userID, SessionID: sid})
		return "", err
	}
	return tok, nil
}

func (s *accountService) CheckToken(ctx context.Context, raw string) (domain.Session, error) {
	session, err := s.signer.Parse(raw)
	if err != nil {
		return domain.Session{}, err
	}

	open, err := s.users.HasSession(ctx, session)
	if err != nil {
		return domain.Session{}, fmt.Errorf("check session: %w", err)
	}
	if !open {
		return domain.Session{}, domain.ErrSessionInvalid
	}
	return session, nil
}

func (s *accountService) Logout(ctx context.Context, session domain.Session) error {
	if err := s.users.CloseSession(ctx, session); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"user_id": session.UserID, "session_id": session.SessionID}).Info("user logged out")
	return nil
}

func (s *accountService) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.users.EmailExists(ctx, email)
}

func (s *accountService) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.users.UsernameExists(ctx, username)
}

func (s *accountService) Profile(ctx context.Context, userID uint32) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}
}
