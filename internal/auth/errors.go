package auth

import "errors"

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials     = errors.New("auth: invalid credentials")
	ErrUnauthenticated        = errors.New("auth: unauthenticated")
	ErrInvalidSession         = errors.New("auth: invalid session")
	ErrWrongTenant            = errors.New("auth: token not valid for this application")
	ErrInsufficientPermission = errors.New("auth: insufficient permission")

	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken  = errors.New("auth: invalid token")
	ErrMissingSecret = errors.New("auth: signing secret is not configured")
)
