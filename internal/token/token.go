// Package token signs and verifies session credentials.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"feather-planner/internal/domain"
)

// Claims carries the session a token was issued for.
type Claims struct {
	UserID    uint32 `json:"uid"`
	SessionID uint64 `json:"sid"`
	jwt.RegisteredClaims
}

// Signer issues HS256 tokens for sessions and verifies them.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a signer keyed with secret. A ttl of zero issues tokens without expiry.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (s *Signer) Sign(session domain.Session) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:    session.UserID,
		SessionID: session.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatUint(uint64(session.UserID), 10),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and structure of raw and returns the session it names.
// It says nothing about whether that session is still open.
func (s *Signer) Parse(raw string) (domain.Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Session{}, domain.ErrMissingCredential
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Session{}, domain.ErrTokenExpired
		}
		return domain.Session{}, domain.ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject != strconv.FormatUint(uint64(claims.UserID), 10) {
		return domain.Session{}, domain.ErrInvalidToken
	}

	return domain.Session{UserID: claims.UserID, SessionID: claims.SessionID}, nil
}
