package pda

import "errors"

var (
	// ErrNotFound is returned when a PDA does not exist.
	ErrNotFound = errors.New("pda: not found")
	// ErrNotDraft is returned when an operation needs a draft PDA.
	ErrNotDraft = errors.New("pda: not in draft status")
	// ErrAlreadyApproved is returned when approving twice.
	ErrAlreadyApproved = errors.New("pda: already approved")
	// ErrStaleUpdate is returned when an optimistic concurrency check fails.
	ErrStaleUpdate = errors.New("pda: stale update, refresh and retry")
	// ErrUnknownCategory is returned for a category outside the fixed list.
	ErrUnknownCategory = errors.New("pda: unknown cost category")
	// ErrEmptyLabel is returned when a custom line has no label.
	ErrEmptyLabel = errors.New("pda: custom line label required")
	// ErrCustomLineIndex is returned for an out of range custom line index.
	ErrCustomLineIndex = errors.New("pda: custom line index out of range")
	// ErrEmptyClientName is returned when a PDA has no client.
	ErrEmptyClientName = errors.New("pda: client name required")
)
