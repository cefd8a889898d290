package user

import "errors"

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
	// ErrConflict is returned when a guarded patch finds the token already changed.
	ErrConflict = errors.New("user changed concurrently")
)
