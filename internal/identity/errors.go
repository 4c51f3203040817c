package identity

import "errors"

var (
	ErrAuthFailure    = errors.New("invalid email or password")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrNotFound       = errors.New("identity not found")
)
