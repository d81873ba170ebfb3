package spool

import "errors"

// Store errors.
var (
	// ErrInvalidUser is returned when a username fails validation and
	// cannot be used as a mailbox path component.
	ErrInvalidUser = errors.New("invalid username")

	// ErrNoSuchMessage is returned when an index does not address a
	// message in the mailbox's current ordering.
	ErrNoSuchMessage = errors.New("no such message")
)
