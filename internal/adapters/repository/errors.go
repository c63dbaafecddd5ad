package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound = errors.New("reputation record not found")
	ErrConflict = errors.New("reputation record revision conflict")
)
