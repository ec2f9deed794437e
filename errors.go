package fragmentedqueue

import "errors"

var (
	// ErrEmptyQueue is returned when reading from a queue without entries.
	ErrEmptyQueue = errors.New("fragmentedqueue: queue is empty")
	// ErrDimensionMismatch is returned when vectors or queues that must be
	// aligned differ in length.
	ErrDimensionMismatch = errors.New("fragmentedqueue: dimension mismatch")
	// ErrIndexOutOfRange is returned when a positional operator addresses an
	// entry the other queue does not have.
	ErrIndexOutOfRange = errors.New("fragmentedqueue: index out of range")
	// ErrMalformedFile is returned when persisted state is missing a section
	// label or contains an unparsable block.
	ErrMalformedFile = errors.New("fragmentedqueue: malformed file")
)
