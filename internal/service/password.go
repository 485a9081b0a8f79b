package service

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	PasswordHashingPlain  = "plain"
	PasswordHashingBcrypt = "bcrypt"
)

// Passwords turns a password into its stored form and checks candidates against it.
type Passwords interface {
	Store(password string) (string, error)
	Matches(stored, provided string) bool
}

// NewPasswords returns the password scheme named by mode.
func NewPasswords(mode string) (Passwords, error) {
	switch mode {
	case "", PasswordHashingPlain:
		return plainPasswords{}, nil
	case PasswordHashingBcrypt:
		return bcryptPasswords{cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password hashing %q", mode)
	}
}

// plainPasswords keeps passwords as given.
type plainPasswords struct{}

func (plainPasswords) Store(password string) (string, error) { return password, nil }

func (plainPasswords) Matches(stored, provided string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) == 1
}

type bcryptPasswords struct {
	cost int
}

func (p bcryptPasswords) Store(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (bcryptPasswords) Matches(stored, provided string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(provided)) == nil
}
