package domain

import "errors"

var (
	// ErrCapacityExceeded is returned when a selection or handoff queue is already full
	ErrCapacityExceeded = errors.New("comparison capacity exceeded")

	// ErrAlreadyPresent is returned when a program is already part of the selection
	ErrAlreadyPresent = errors.New("program already selected")

	// ErrEmptyCatalog is returned when neither data source produced any program
	ErrEmptyCatalog = errors.New("catalog is empty")

	// ErrMalformedRecord is returned when a raw record lacks its identity fields
	ErrMalformedRecord = errors.New("malformed program record")

	// ErrProgramNotFound is returned when a program id is not in the catalog
	ErrProgramNotFound = errors.New("program not found")

	// ErrInsufficientSelection is returned when fewer than two programs are selected for comparison
	ErrInsufficientSelection = errors.New("at least two programs are required for comparison")

	// ErrStateNotFound is returned when a key is missing from the state store
	ErrStateNotFound = errors.New("state not found")

	// ErrSourceUnavailable is returned when a catalog data source cannot be fetched
	ErrSourceUnavailable = errors.New("catalog source unavailable")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrStoreUnavailable is returned when the state store cannot be reached
	ErrStoreUnavailable = errors.New("state store unavailable")
)
