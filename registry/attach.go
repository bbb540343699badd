package registry

import "github.com/Akheon23/cuda-gdb/debugapi"

// AttachState is the 4-phase attach/detach handshake (spec.md §4.5's
// glossary entry; supplemented from original_source/gdb/cuda-events.c's
// CUDBG_EVENT_ATTACH_COMPLETE/DETACH_COMPLETE handling, which the
// distillation only implies via the event table).
type AttachState = debugapi.AttachState

const (
	AttachNotStarted    = debugapi.AttachNotStarted
	AttachInProgress    = debugapi.AttachInProgress
	AttachAppReady      = debugapi.AttachAppReady
	AttachDetachComplete = debugapi.AttachDetachComplete
)

// Attach is the process-wide attach-state cell, single-threaded-consumer
// state like the current focus.
type Attach struct {
	state AttachState
}

func (a *Attach) Get() AttachState   { return a.state }
func (a *Attach) Set(s AttachState)  { a.state = s }

// InProgress reports whether CTX_PUSH/CTX_POP should be ignored, per
// spec.md §4.3's "ignored while attach-in-progress" rule.
func (a *Attach) InProgress() bool { return a.state != AttachNotStarted }
