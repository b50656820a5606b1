package storage

import "errors"

var (
	ErrIndexUnavailable   = errors.New("index unavailable")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
)
