package event

import "errors"

// ErrInvalidThreadID is returned when a context/kernel event arrives with
// the sentinel "no thread" id, which spec.md §4.3 treats as a hard,
// unrecoverable error rather than a value to tolerate.
var ErrInvalidThreadID = errors.New("event: invalid thread id")

// ErrUnknownContext and ErrUnknownKernel mark events that reference a
// context or kernel the registries never saw created, which the original
// source treats as silently ignorable (the context/kernel may have already
// been torn down by the time the event drains).
var (
	ErrUnknownContext = errors.New("event: unknown context")
	ErrUnknownKernel  = errors.New("event: unknown kernel")
)
