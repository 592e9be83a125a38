package h2undo

import "errors"

// Sentinel errors returned by undo log operations.
var (
	// ErrCodec is returned when a row image cannot be encoded or decoded.
	// Fatal to the enclosing transaction.
	ErrCodec = errors.New("row codec error")

	// ErrScratchIO is returned when a read, write or seek against the
	// scratch file fails. Fatal to the session.
	ErrScratchIO = errors.New("scratch file i/o error")

	// ErrNotEligible is returned by encode when called on a record whose
	// row image refused to report eligible_for_spill.
	ErrNotEligible = errors.New("record is not eligible for spill")

	// ErrNotStored is returned by decode or seek when called on a record
	// that has no disk_offset.
	ErrNotStored = errors.New("record is not stored on disk")

	// ErrEmptyLog is returned by PopLast when there is nothing to pop.
	ErrEmptyLog = errors.New("undo log is empty")

	// ErrClosed names an operation on a released scratch file. UndoLog
	// does not return it: after Clear, the next spill opens a fresh
	// scratch file.
	ErrClosed = errors.New("undo log scratch file is closed")

	// ErrInvariant marks an internal assertion failure; Size panics with
	// it in every build. Seeing this means residentCount drifted from the records it
	// is supposed to count.
	ErrInvariant = errors.New("undo log invariant violation")
)
