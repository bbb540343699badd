package session_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Akheon23/cuda-gdb/command"
	"github.com/Akheon23/cuda-gdb/debugapi"
	"github.com/Akheon23/cuda-gdb/internal/fakeapi"
	"github.com/Akheon23/cuda-gdb/session"
)

type fakeHooks struct {
	breakpoints []uint64
	currentTID  uint32
}

func (f *fakeHooks) ResolveBreakpoints([]byte) {}
func (f *fakeHooks) CleanupBreakpoints(uint64) {}
func (f *fakeHooks) PlaceAutoBreakpoint(_ uint32, entry uint64) {
	f.breakpoints = append(f.breakpoints, entry)
}
func (f *fakeHooks) ReportContextEvent(string)     {}
func (f *fakeHooks) CurrentThreadID() uint32       { return f.currentTID }
func (f *fakeHooks) SetCurrentThreadID(tid uint32) { f.currentTID = tid }

type fakeSignaler struct{ delivered []uint32 }

func (s *fakeSignaler) SignalThread(tid uint32) bool {
	s.delivered = append(s.delivered, tid)
	return true
}
func (s *fakeSignaler) FirstLiveThread() (uint32, bool) { return 0, false }

var _ = Describe("Session", func() {
	It("drains a kernel launch end to end and serves an info query", func() {
		api := fakeapi.New()
		api.Devices[0] = &fakeapi.Device{NumSMs: 1, NumWarps: 1, NumLanes: 1, SMs: map[uint32]*fakeapi.SM{
			0: {ValidMask: 1, Warps: map[uint32]*fakeapi.Warp{
				0: {ValidLanes: 1, ActiveLanes: 1, GridID: 1, Lanes: map[uint32]*fakeapi.Lane{0: {}}},
			}},
		}}
		hooks := &fakeHooks{}
		sig := &fakeSignaler{}

		opts := command.DefaultOptions()
		opts.BreakOnLaunchApp = true

		sess, err := session.NewBuilder().
			WithAPI(api).
			WithHostHooks(hooks).
			WithSignaler(sig).
			WithOptions(opts).
			Build()
		Expect(err).NotTo(HaveOccurred())

		api.EmitSync(debugapi.Event{Kind: debugapi.EventCtxCreate, Device: 0, ContextID: 1, ThreadID: 1})
		api.EmitSync(debugapi.Event{
			Kind: debugapi.EventKernelReady, Device: 0, GridID: 1, ThreadID: 1,
			ContextID: 1, Entry: 0x400, GridDim: debugapi.Dim3{X: 1, Y: 1, Z: 1},
			BlockDim: debugapi.Dim3{X: 1, Y: 1, Z: 1}, KernelType: debugapi.KernelApplication,
		})
		Expect(sess.Events.Drain()).To(Succeed())

		Expect(hooks.breakpoints).To(Equal([]uint64{0x400}))
		Expect(sess.Kernels.IsPresent(1)).To(BeTrue())

		out, err := sess.Command.InfoKernels("")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).NotTo(BeEmpty())
	})
})
