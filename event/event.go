// Package event drains the debug API's two event queues and applies each
// event to the cache, context/kernel registries, and attach state machine,
// in the order spec.md §4.3 requires: every queued event is consumed before
// any cache field is recomputed. Grounded on
// _examples/original_source/gdb/cuda-events.c.
package event

import "github.com/Akheon23/cuda-gdb/debugapi"

// Kind and Event are aliased from debugapi so callers of this package never
// need to import debugapi directly for event handling.
type Kind = debugapi.EventKind

const (
	KindNone            = debugapi.EventNone
	KindCtxCreate       = debugapi.EventCtxCreate
	KindCtxDestroy      = debugapi.EventCtxDestroy
	KindCtxPush         = debugapi.EventCtxPush
	KindCtxPop          = debugapi.EventCtxPop
	KindElfImageLoaded  = debugapi.EventElfImageLoaded
	KindKernelReady     = debugapi.EventKernelReady
	KindKernelFinished  = debugapi.EventKernelFinished
	KindInternalError   = debugapi.EventInternalError
	KindTimeout         = debugapi.EventTimeout
	KindAttachComplete  = debugapi.EventAttachComplete
	KindDetachComplete  = debugapi.EventDetachComplete
)

type Event = debugapi.Event
