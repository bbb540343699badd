package notify_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Akheon23/cuda-gdb/notify"
)

// fakeSignaler records every delivery attempt instead of touching real
// threads.
type fakeSignaler struct {
	delivered []uint32
	refuse    map[uint32]bool
	fallback  uint32
	hasFallback bool
}

func newFakeSignaler() *fakeSignaler {
	return &fakeSignaler{refuse: map[uint32]bool{}}
}

func (f *fakeSignaler) SignalThread(tid uint32) bool {
	if f.refuse[tid] {
		return false
	}
	f.delivered = append(f.delivered, tid)
	return true
}

func (f *fakeSignaler) FirstLiveThread() (uint32, bool) {
	if !f.hasFallback {
		return 0, false
	}
	f.delivered = append(f.delivered, f.fallback)
	return f.fallback, true
}

var _ = Describe("Machine", func() {
	var (
		sig *fakeSignaler
		m   *notify.Machine
	)

	BeforeEach(func() {
		sig = newFakeSignaler()
		m = notify.New(sig)
	})

	It("sends immediately when idle", func() {
		m.Notify(notify.Data{ThreadID: 7})
		Expect(sig.delivered).To(Equal([]uint32{7}))
		Expect(m.Pending()).To(BeTrue())
	})

	It("never observes sent and pending_send simultaneously", func() {
		m.Block()
		m.Notify(notify.Data{ThreadID: 7})
		Expect(m.Pending()).To(BeFalse())
		Expect(sig.delivered).To(BeEmpty())

		m.Accept()
		Expect(sig.delivered).To(Equal([]uint32{7}))
		Expect(m.Pending()).To(BeTrue())
	})

	It("marks a second notification while one is outstanding as aliased", func() {
		m.Notify(notify.Data{ThreadID: 7})
		m.Notify(notify.Data{ThreadID: 9})
		Expect(m.AliasedEvent()).To(BeTrue())
		Expect(sig.delivered).To(Equal([]uint32{7}))
	})

	It("resends on timeout while still pending", func() {
		m.Notify(notify.Data{ThreadID: 7})
		m.Notify(notify.Data{ThreadID: 7, Timeout: true})
		Expect(sig.delivered).To(Equal([]uint32{7, 7}))
	})

	It("does not resend on timeout once received", func() {
		m.Notify(notify.Data{ThreadID: 7})
		m.Analyze(7, notify.WaitStatus{Stopped: true, Trap: true})
		Expect(m.Received()).To(BeTrue())

		m.Notify(notify.Data{ThreadID: 7, Timeout: true})
		Expect(sig.delivered).To(Equal([]uint32{7}))
	})

	It("allows exactly one sent false-to-true transition between MarkConsumed calls", func() {
		m.Notify(notify.Data{ThreadID: 7})
		Expect(m.Pending()).To(BeTrue())

		m.Notify(notify.Data{ThreadID: 7})
		Expect(sig.delivered).To(HaveLen(1))

		m.Analyze(7, notify.WaitStatus{Stopped: true, Trap: true})
		m.MarkConsumed()
		Expect(m.Pending()).To(BeFalse())

		m.Notify(notify.Data{ThreadID: 9})
		Expect(sig.delivered).To(Equal([]uint32{7, 9}))
	})

	It("falls back to the first live thread when the target refuses", func() {
		sig.refuse[7] = true
		sig.hasFallback = true
		sig.fallback = 3

		m.Notify(notify.Data{ThreadID: 7})
		Expect(sig.delivered).To(Equal([]uint32{3}))
	})
})
