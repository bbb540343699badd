// Package command implements the closed info/switch/query dispatch surface
// (spec.md §5) plus the typed error taxonomy every operation in this module
// reports through. Grounded on the CLI-flag conventions of the example pack
// (table rendering via go-pretty, as already pulled in transitively by the
// teacher's own dependency on akita's monitoring package) rather than on any
// single teacher file, since the teacher has no command-dispatch analog.
package command

// Options mirrors the original debugger's persisted settings (spec.md §7's
// end-to-end scenarios reference several of these directly: "set cuda
// break_on_launch", "set cuda notify", coalescing toggles).
type Options struct {
	DebugNotifications             bool
	BreakOnLaunchApp               bool
	BreakOnLaunchSystem            bool
	ShowContextEvents               bool
	CoalesceInfoOutput              bool
	CoalesceBreakOnLine             bool
	DeferKernelLaunchNotifications bool
	GPUBusyCheck                    bool
}

// DefaultOptions matches the original debugger's documented defaults.
func DefaultOptions() Options {
	return Options{
		CoalesceInfoOutput:  true,
		CoalesceBreakOnLine: true,
		GPUBusyCheck:        true,
	}
}
