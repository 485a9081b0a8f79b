package service

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"feather-planner/internal/repository/memory"
	"feather-planner/internal/token"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestAccounts(t *testing.T) (AccountService, *memory.UserRepository) {
	t.Helper()
	signer, err := token.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)
	users := memory.NewUserRepository(quietLogger())
	return NewAccountService(users, signer, nil, quietLogger()), users
}

func newTestCalendars(t *testing.T, policy StalePolicy, userIDs ...uint32) CalendarService {
	t.Helper()
	svc := NewCalendarService(memory.NewCalendarRepository(quietLogger()), policy, quietLogger())
	for _, id := range userIDs {
		require.NoError(t, svc.AddUser(t.Context(), id))
	}
	return svc
}
