package repository

import "errors"

var (
	// ErrNotFound indicates the requested entry does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrAlreadyExists indicates a conditional create found the key already taken.
	ErrAlreadyExists = errors.New("repository: already exists")
)
