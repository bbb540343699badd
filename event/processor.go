package event

import (
	"fmt"
	"log/slog"

	"github.com/Akheon23/cuda-gdb/cache"
	"github.com/Akheon23/cuda-gdb/coord"
	"github.com/Akheon23/cuda-gdb/debugapi"
	"github.com/Akheon23/cuda-gdb/registry"
)

// HostHooks is the narrow collaborator the processor calls out to for
// effects it cannot itself perform: placing an auto-breakpoint at a
// freshly-launched kernel's entry, re-resolving breakpoints after a module
// loads, retargeting the host debugger's current thread, and surfacing a
// context-lifecycle message to the user when ShowContextEvents is set
// (spec.md §6, "Upward" / "the host debugger collaborator"). registry.Devices
// already owns ResolveBreakpoints/CleanupBreakpoints; this adds the pieces
// the processor needs that aren't about the registry itself.
type HostHooks interface {
	registry.BreakpointHooks
	PlaceAutoBreakpoint(dev uint32, entry uint64)
	ReportContextEvent(msg string)
	CurrentThreadID() uint32
	SetCurrentThreadID(tid uint32)
}

// withThreadFocus retargets hooks' current host thread to tid for the
// duration of fn, restoring whatever thread was current beforehand. This is
// the Go analog of the original's previous_ptid save/restore around
// cuda_create_auto_breakpoint (spec.md §4.3/§9) — a scoped guard over the
// host thread, distinct from registry.Devices.SaveCurrentContext's scoped
// guard over the current *context*.
func withThreadFocus(hooks HostHooks, tid uint32, fn func()) {
	previous := hooks.CurrentThreadID()
	hooks.SetCurrentThreadID(tid)
	defer hooks.SetCurrentThreadID(previous)
	fn()
}

// AttachNotifier receives attach/detach phase transitions; package registry
// implements it via *registry.Attach.
type AttachNotifier interface {
	Set(s registry.AttachState)
}

// TimeoutNotifier is the narrow seam into package notify's machine for
// EVT_TIMEOUT resends, kept as an interface so event need not import notify.
type TimeoutNotifier interface {
	Notify(threadID uint32, timeout bool)
}

// Processor drains both debug-API event queues and applies each event to
// the registries and cache, per spec.md §4.3's two invariants: every queued
// event is consumed before any cache field is recomputed, and any event
// referencing the sentinel "no thread" id is a hard error.
type Processor struct {
	api     debugapi.API
	sys     *cache.System
	devices *registry.Devices
	kernels *registry.Kernels
	attach  *registry.Attach
	focus   *coord.Focus
	hooks   HostHooks
	timeout TimeoutNotifier
	opts    Options
	logger  *slog.Logger

	// seenBreakLines dedups auto-breakpoint placement by entry address
	// within one Drain call, per Options.CoalesceBreakOnLine. Reset at the
	// start of every Drain so the predicate is read once before that
	// iteration starts rather than accumulating across calls (spec.md §9
	// Open Question 2).
	seenBreakLines map[uint64]bool
}

func NewProcessor(
	api debugapi.API, sys *cache.System, devices *registry.Devices, kernels *registry.Kernels,
	attach *registry.Attach, focus *coord.Focus, hooks HostHooks, timeout TimeoutNotifier,
	opts Options, logger *slog.Logger,
) *Processor {
	return &Processor{
		api: api, sys: sys, devices: devices, kernels: kernels, attach: attach,
		focus: focus, hooks: hooks, timeout: timeout, opts: opts, logger: logger,
	}
}

// Drain pulls every queued event from both the synchronous and asynchronous
// queues, applying each in arrival order, before returning. It never
// recomputes a cache field itself: the events it applies only mutate the
// registries and attach state, leaving the cache's presence bits to be
// invalidated explicitly by the relevant handler (e.g. AttachComplete,
// KernelFinished) exactly where spec.md says so. Once every event is
// consumed, it runs the once-per-stop exception-filtering pass over every
// device (spec.md §4.2), since a drained queue is this processor's only
// notion of "the target has stopped."
func (p *Processor) Drain() error {
	p.seenBreakLines = nil

	for {
		drainedAny := false

		for {
			evt, ok, err := p.api.NextSyncEvent()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			drainedAny = true
			if err := p.apply(evt); err != nil {
				return err
			}
		}

		for {
			evt, ok, err := p.api.NextAsyncEvent()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			drainedAny = true
			if err := p.apply(evt); err != nil {
				return err
			}
		}

		if !drainedAny {
			break
		}
	}

	for dev := uint32(0); dev < p.sys.NumDevices(); dev++ {
		if err := p.sys.Device(dev).FilterExceptionState(); err != nil {
			return err
		}
	}
	return nil
}

// invalidateAllDevices clears every device's cache in bulk, the event
// processor's half of spec.md §4.2's "resume invalidates per-device caches"
// rule. ATTACH_COMPLETE/DETACH_COMPLETE are the event table's closest analog
// to a resume-from-unknown-state transition: the debugger has no prior
// mirror of device state to trust across either edge of an attach.
func (p *Processor) invalidateAllDevices() {
	for dev := uint32(0); dev < p.sys.NumDevices(); dev++ {
		p.sys.Device(dev).Invalidate()
	}
}

func (p *Processor) apply(evt Event) error {
	if requiresThread(evt.Kind) && evt.ThreadID == debugapi.InvalidThreadID {
		return ErrInvalidThreadID
	}

	switch evt.Kind {
	case KindCtxCreate:
		p.devices.CreateContext(evt.Device, evt.ContextID, evt.ThreadID)
		p.reportContext("context created", evt)
	case KindCtxDestroy:
		p.devices.DestroyContext(evt.Device, evt.ContextID, evt.ThreadID)
		if focus, ok := p.focus.Get(); ok {
			if focus.Dev.IsConcrete() && uint32(focus.Dev.Value) == evt.Device {
				p.focus.Clear()
			}
		}
		p.reportContext("context destroyed", evt)
	case KindCtxPush:
		if p.attach.InProgress() {
			return nil
		}
		p.devices.PushContext(evt.Device, evt.ContextID, evt.ThreadID)
		p.reportContext("context pushed", evt)
	case KindCtxPop:
		if p.attach.InProgress() {
			return nil
		}
		p.devices.PopContext(evt.Device, evt.ContextID, evt.ThreadID)
		p.reportContext("context popped", evt)
	case KindElfImageLoaded:
		p.devices.LoadElfImage(evt.Device, evt.ContextID, evt.ModuleID, evt.ElfImage)
	case KindKernelReady:
		return p.kernelReady(evt)
	case KindKernelFinished:
		p.kernels.Terminate(evt.GridID)
		p.kernels.Invalidate(evt.GridID)
		p.sys.Device(evt.Device).Invalidate()
	case KindInternalError:
		return &debugapi.Err{Op: "internal_error", Code: evt.InternalErrorCode}
	case KindTimeout:
		if p.timeout != nil {
			p.timeout.Notify(evt.ThreadID, true)
		}
	case KindAttachComplete:
		p.attach.Set(registry.AttachAppReady)
		p.invalidateAllDevices()
	case KindDetachComplete:
		p.attach.Set(registry.AttachDetachComplete)
		p.invalidateAllDevices()
	}
	return nil
}

func requiresThread(k Kind) bool {
	switch k {
	case KindCtxCreate, KindCtxDestroy, KindCtxPush, KindCtxPop, KindKernelReady:
		return true
	default:
		return false
	}
}

// kernelReady implements KERNEL_READY exactly per spec.md §4.3's
// supplemented description: temporarily retarget the current context to
// resolve the launching context/module, register the kernel straight from
// the event's own fields (the debug API hands ContextID/ModuleID/Entry/
// GridDim/BlockDim/KernelType/ParentGridID over with the event itself, so no
// GridInfo round trip is needed here), then restore the context. Placing the
// auto-breakpoint additionally retargets the current host thread for its
// duration via withThreadFocus.
func (p *Processor) kernelReady(evt Event) error {
	p.devices.SaveCurrentContext()
	defer p.devices.RestoreCurrentContext()

	ctx := p.devices.FindContextByID(evt.Device, evt.ContextID)
	if ctx != nil {
		p.devices.SetCurrentContext(ctx)
	}

	kernel := p.kernels.Start(
		evt.Device, evt.GridID, evt.Entry, evt.ContextID, evt.ModuleID,
		evt.GridDim, evt.BlockDim, evt.KernelType, evt.ParentGridID,
	)

	breakOnLaunch := kernel.Type == debugapi.KernelApplication && p.opts.BreakOnLaunchApp ||
		kernel.Type == debugapi.KernelSystem && p.opts.BreakOnLaunchSystem
	if !breakOnLaunch {
		return nil
	}

	if p.opts.GPUBusyCheck && p.deviceBusy(evt.Device, kernel.ID) {
		p.reportContext(fmt.Sprintf("gpu busy: deferred auto-breakpoint for kernel %d on device %d", kernel.GridID, evt.Device), evt)
		return nil
	}

	if p.opts.CoalesceBreakOnLine {
		if p.seenBreakLines == nil {
			p.seenBreakLines = map[uint64]bool{}
		}
		if p.seenBreakLines[kernel.VirtCodeBase] {
			return nil
		}
		p.seenBreakLines[kernel.VirtCodeBase] = true
	}

	withThreadFocus(p.hooks, evt.ThreadID, func() {
		p.hooks.PlaceAutoBreakpoint(evt.Device, kernel.VirtCodeBase)
	})

	return nil
}

// deviceBusy reports whether dev already hosts a live kernel other than
// except, gating auto-breakpoint placement behind Options.GPUBusyCheck so a
// breakpoint isn't inserted while the GPU is occupied by unrelated work.
func (p *Processor) deviceBusy(dev uint32, except uint64) bool {
	for _, id := range p.kernels.LiveKernelIDs() {
		if id == except {
			continue
		}
		if kernelDev, ok := p.kernels.KernelDeviceID(id); ok && kernelDev == dev {
			return true
		}
	}
	return false
}

func (p *Processor) reportContext(msg string, evt Event) {
	if p.opts.ShowContextEvents {
		p.hooks.ReportContextEvent(msg)
	}
}
