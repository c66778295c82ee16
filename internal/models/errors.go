package models

import "errors"

// error classes surfaced by the core; callers test them with errors.Is
var (
	ErrConfiguration = errors.New("configuration error")
	ErrProvider      = errors.New("provider error")
	ErrIndexing      = errors.New("indexing error")
	ErrGeneration    = errors.New("generation error")
	ErrStorage       = errors.New("storage error")
)

var (
	ErrDuplicateID        = errors.New("duplicate record id")
	ErrCollectionExists   = errors.New("collection already exists")
	ErrCollectionNotFound = errors.New("collection not found")
)
