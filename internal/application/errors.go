package application

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("an account with this email already exists")

	// ErrInvalidToken is the single client-facing failure for token
	// consumption. Whether the token was missing, expired or already used is
	// deliberately not disclosed.
	ErrInvalidToken = errors.New("invalid or expired token")
)
