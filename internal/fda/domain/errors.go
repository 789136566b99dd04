package fda

import "errors"

var (
	// ErrNotFound is returned when an FDA does not exist.
	ErrNotFound = errors.New("fda: not found")
	// ErrLineNotFound is returned when a ledger line does not exist.
	ErrLineNotFound = errors.New("fda: ledger line not found")
	// ErrNotDraft is returned when a structural edit hits a posted FDA.
	ErrNotDraft = errors.New("fda: not in draft status")
	// ErrStaleUpdate is returned when an optimistic concurrency check fails.
	ErrStaleUpdate = errors.New("fda: stale update, refresh and retry")
	// ErrSourceNotApproved is returned when converting an unapproved PDA.
	ErrSourceNotApproved = errors.New("fda: source pda not approved")
	// ErrOverpayment is returned when a payment would exceed the line amount.
	ErrOverpayment = errors.New("fda: payment exceeds outstanding line amount")
	// ErrNonPositivePayment is returned for a zero or negative payment.
	ErrNonPositivePayment = errors.New("fda: payment amount must be positive")
	// ErrNoPayments is returned when undoing on a line with no payments.
	ErrNoPayments = errors.New("fda: no payments to undo")
	// ErrConfirmRequired is returned when a destructive rebuild lacks
	// explicit confirmation.
	ErrConfirmRequired = errors.New("fda: rebuild discards manual edits, confirmation required")
	// ErrInvalidSide is returned for a side outside AP/AR.
	ErrInvalidSide = errors.New("fda: invalid ledger side")
	// ErrInvalidStatus is returned for an unknown line status value.
	ErrInvalidStatus = errors.New("fda: invalid line status")
)
