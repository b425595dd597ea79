package auth

import (
	"errors"
	"time"
)

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialised
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LoginResult is returned by a successful Directory.Login.
type LoginResult struct {
	User      *User
	Token     string
	Claims    *Claims
	ExpiresIn time.Duration
}

// Sentinel errors for auth operations.
var (
	ErrMissingParameter   = errors.New("missing required parameter")
	ErrEmailExists        = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
	ErrMissingBearer      = errors.New("missing or malformed bearer token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("invalid token")
)
