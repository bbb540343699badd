// Command gpudbgcore is a minimal standalone demonstration of the debugger
// core wired end to end against the in-memory fake backend (spec.md's
// Non-goals exclude building a real transport; a genuine embedding plugs a
// real debugapi.API and hostdbg.Debugger into session.Builder instead of
// fakeapi/the no-op hooks below). Mirrors the teacher's samples/*/main.go
// build-then-run shape.
package main

import (
	"fmt"
	"os"

	"github.com/Akheon23/cuda-gdb/command"
	"github.com/Akheon23/cuda-gdb/debugapi"
	"github.com/Akheon23/cuda-gdb/internal/fakeapi"
	"github.com/Akheon23/cuda-gdb/session"
)

type noopHooks struct{ currentTID uint32 }

func (*noopHooks) ResolveBreakpoints([]byte)          {}
func (*noopHooks) CleanupBreakpoints(uint64)          {}
func (*noopHooks) PlaceAutoBreakpoint(uint32, uint64) {}
func (*noopHooks) ReportContextEvent(msg string)      { fmt.Println(msg) }
func (h *noopHooks) CurrentThreadID() uint32          { return h.currentTID }
func (h *noopHooks) SetCurrentThreadID(tid uint32)    { h.currentTID = tid }

type noopSignaler struct{}

func (noopSignaler) SignalThread(uint32) bool       { return true }
func (noopSignaler) FirstLiveThread() (uint32, bool) { return 0, false }

func main() {
	api := fakeapi.New()
	api.Devices[0] = &fakeapi.Device{NumSMs: 2, NumWarps: 4, NumLanes: 32}

	opts := command.DefaultOptions()
	opts.BreakOnLaunchApp = true

	sess, err := session.NewBuilder().
		WithAPI(api).
		WithHostHooks(&noopHooks{}).
		WithSignaler(noopSignaler{}).
		WithOptions(opts).
		Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gpudbgcore:", err)
		os.Exit(1)
	}

	api.EmitSync(debugapi.Event{Kind: debugapi.EventCtxCreate, Device: 0, ContextID: 1, ThreadID: 1})
	api.EmitSync(debugapi.Event{
		Kind: debugapi.EventKernelReady, Device: 0, GridID: 1, ThreadID: 1,
		ContextID: 1, Entry: 0x1000, GridDim: debugapi.Dim3{X: 1, Y: 1, Z: 1},
		BlockDim: debugapi.Dim3{X: 32, Y: 1, Z: 1}, KernelType: debugapi.KernelApplication,
	})
	if err := sess.Events.Drain(); err != nil {
		fmt.Fprintln(os.Stderr, "gpudbgcore: drain:", err)
		os.Exit(1)
	}

	out, err := sess.Command.InfoKernels("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "gpudbgcore: info kernels:", err)
		os.Exit(1)
	}
	fmt.Println(out)
}
