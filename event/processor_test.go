package event_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Akheon23/cuda-gdb/cache"
	"github.com/Akheon23/cuda-gdb/coord"
	"github.com/Akheon23/cuda-gdb/debugapi"
	"github.com/Akheon23/cuda-gdb/event"
	"github.com/Akheon23/cuda-gdb/internal/fakeapi"
	"github.com/Akheon23/cuda-gdb/registry"
)

type fakeHooks struct {
	resolved    [][]byte
	cleaned     []uint64
	breakpoints []uint64
	contextMsgs []string
	currentTID  uint32
}

func (f *fakeHooks) ResolveBreakpoints(elfImage []byte)    { f.resolved = append(f.resolved, elfImage) }
func (f *fakeHooks) CleanupBreakpoints(contextID uint64)   { f.cleaned = append(f.cleaned, contextID) }
func (f *fakeHooks) PlaceAutoBreakpoint(dev uint32, entry uint64) {
	f.breakpoints = append(f.breakpoints, entry)
}
func (f *fakeHooks) ReportContextEvent(msg string) { f.contextMsgs = append(f.contextMsgs, msg) }
func (f *fakeHooks) CurrentThreadID() uint32       { return f.currentTID }
func (f *fakeHooks) SetCurrentThreadID(tid uint32) { f.currentTID = tid }

var _ = Describe("Processor", func() {
	var (
		api     *fakeapi.API
		kernels *registry.Kernels
		devices *registry.Devices
		attach  *registry.Attach
		focus   *coord.Focus
		hooks   *fakeHooks
		sys     *cache.System
		proc    *event.Processor
	)

	BeforeEach(func() {
		api = fakeapi.New()
		kernels = registry.NewKernels()
		hooks = &fakeHooks{}
		devices = registry.NewDevices(hooks)
		attach = &registry.Attach{}
		focus = &coord.Focus{}
		sys = cache.NewSystem(api, kernels, 1, false)
		proc = event.NewProcessor(api, sys, devices, kernels, attach, focus, hooks, nil, event.Options{
			BreakOnLaunchApp: true,
		}, nil)
	})

	It("creates and destroys a context", func() {
		api.EmitSync(debugapi.Event{Kind: event.KindCtxCreate, Device: 0, ContextID: 1, ThreadID: 42})
		Expect(proc.Drain()).To(Succeed())
		Expect(devices.FindContextByID(0, 1)).NotTo(BeNil())

		api.EmitSync(debugapi.Event{Kind: event.KindCtxDestroy, Device: 0, ContextID: 1, ThreadID: 42})
		Expect(proc.Drain()).To(Succeed())
		Expect(devices.FindContextByID(0, 1)).To(BeNil())
		Expect(hooks.cleaned).To(Equal([]uint64{1}))
	})

	It("rejects events carrying the invalid thread id", func() {
		api.EmitSync(debugapi.Event{Kind: event.KindCtxCreate, Device: 0, ContextID: 1, ThreadID: debugapi.InvalidThreadID})
		Expect(proc.Drain()).To(MatchError(event.ErrInvalidThreadID))
	})

	It("ignores context push/pop while attach is in progress", func() {
		attach.Set(registry.AttachInProgress)
		// Created on thread 2, so only the push could stack it on thread 1.
		api.EmitSync(debugapi.Event{Kind: event.KindCtxCreate, Device: 0, ContextID: 1, ThreadID: 2})
		api.EmitSync(debugapi.Event{Kind: event.KindCtxPush, Device: 0, ContextID: 1, ThreadID: 1})
		Expect(proc.Drain()).To(Succeed())
		Expect(devices.Contexts(0).Active(1)).To(BeNil())
	})

	It("registers a kernel and places an auto-breakpoint on launch", func() {
		api.EmitSync(debugapi.Event{Kind: event.KindCtxCreate, Device: 0, ContextID: 1, ThreadID: 1})
		api.EmitSync(debugapi.Event{
			Kind: event.KindKernelReady, Device: 0, GridID: 7, ThreadID: 1,
			ContextID: 1, ModuleID: 0, Entry: 0x1000,
			GridDim: debugapi.Dim3{X: 1, Y: 1, Z: 1}, BlockDim: debugapi.Dim3{X: 32, Y: 1, Z: 1},
			KernelType: debugapi.KernelApplication,
		})
		Expect(proc.Drain()).To(Succeed())

		Expect(kernels.IsPresent(7)).To(BeTrue())
		Expect(hooks.breakpoints).To(Equal([]uint64{0x1000}))
	})

	It("terminates a kernel on KERNEL_FINISHED", func() {
		api.EmitSync(debugapi.Event{
			Kind: event.KindKernelReady, Device: 0, GridID: 7, ThreadID: 1,
			KernelType: debugapi.KernelApplication,
		})
		Expect(proc.Drain()).To(Succeed())

		api.EmitSync(debugapi.Event{Kind: event.KindKernelFinished, Device: 0, GridID: 7})
		Expect(proc.Drain()).To(Succeed())
		Expect(kernels.Lookup(7).IsAlive()).To(BeFalse())
	})

	It("drains both queues before returning", func() {
		api.EmitSync(debugapi.Event{Kind: event.KindCtxCreate, Device: 0, ContextID: 1, ThreadID: 1})
		api.EmitAsync(debugapi.Event{Kind: event.KindCtxCreate, Device: 0, ContextID: 2, ThreadID: 1})
		Expect(proc.Drain()).To(Succeed())
		Expect(devices.FindContextByID(0, 1)).NotTo(BeNil())
		Expect(devices.FindContextByID(0, 2)).NotTo(BeNil())
	})

	It("surfaces internal errors", func() {
		api.EmitSync(debugapi.Event{Kind: event.KindInternalError, InternalErrorCode: 5})
		err := proc.Drain()
		Expect(err).To(HaveOccurred())
	})

	It("transitions attach state on ATTACH_COMPLETE", func() {
		api.EmitSync(debugapi.Event{Kind: event.KindAttachComplete})
		Expect(proc.Drain()).To(Succeed())
		Expect(attach.Get()).To(Equal(registry.AttachState(registry.AttachAppReady)))
	})
})
