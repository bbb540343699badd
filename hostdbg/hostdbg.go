// Package hostdbg declares the narrow contract the core speaks upward to the
// host debugger process it is embedded in (spec.md §6, "Upward"): thread
// enumeration for package notify's signal delivery, breakpoint
// placement for package event, and symbol/source-line lookup for package
// command's display logic. No implementation lives here; cuda-gdb's own
// embedding supplies one, and internal/fakeapi-adjacent test doubles satisfy
// it for unit tests.
package hostdbg

// Frame is the minimal shape command needs to render "where" output.
type Frame struct {
	PC         uint64
	Symbol     string
	SourceFile string
	Line       int
}

// Debugger is the full upward surface. It is intentionally small: each
// consumer below only imports the slice of methods it actually needs via
// its own narrower local interface (event.HostHooks, notify.LiveThreads),
// and Debugger exists so that one concrete implementation can satisfy both
// at once. notify.Signaler is not part of it: notify.ThreadSignaler
// implements that on top of LiveThreads.
type Debugger interface {
	// EachThreadID iterates live host thread ids in the debugger's own
	// order, stopping early if fn returns false.
	EachThreadID(fn func(tid uint32) bool)

	// ResolveBreakpoints re-resolves any pending breakpoints against a
	// newly loaded ELF image.
	ResolveBreakpoints(elfImage []byte)
	// CleanupBreakpoints drops every breakpoint owned by a destroyed
	// context.
	CleanupBreakpoints(contextID uint64)
	// PlaceAutoBreakpoint inserts a temporary breakpoint at a kernel's
	// entry address, used by the break-on-launch options.
	PlaceAutoBreakpoint(dev uint32, entry uint64)

	// ReportContextEvent surfaces a context-lifecycle message to the user,
	// gated by Options.ShowContextEvents.
	ReportContextEvent(msg string)

	// CurrentThreadID returns the host thread the debugger is currently
	// focused on, mirroring the original's ptid_t notion of "current thread".
	CurrentThreadID() uint32
	// SetCurrentThreadID retargets the debugger's current thread, used by
	// event.withThreadFocus to save/restore it around auto-breakpoint
	// placement.
	SetCurrentThreadID(tid uint32)

	// CurrentFrame returns the host debugger's innermost frame for tid.
	CurrentFrame(tid uint32) (Frame, bool)

	// SymbolAt resolves a device code address to a symbol name.
	SymbolAt(elfImage []byte, addr uint64) (string, bool)
	// SourceLineAt resolves a device code address to a source location.
	SourceLineAt(elfImage []byte, addr uint64) (file string, line int, ok bool)
}
