package registry_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Akheon23/cuda-gdb/registry"
)

var _ = Describe("Attach", func() {
	It("starts not-in-progress", func() {
		a := &registry.Attach{}
		Expect(a.Get()).To(Equal(registry.AttachNotStarted))
		Expect(a.InProgress()).To(BeFalse())
	})

	DescribeTable("InProgress reflects every state but AttachNotStarted",
		func(state registry.AttachState, wantInProgress bool) {
			a := &registry.Attach{}
			a.Set(state)
			Expect(a.Get()).To(Equal(state))
			Expect(a.InProgress()).To(Equal(wantInProgress))
		},
		Entry("not started", registry.AttachNotStarted, false),
		Entry("in progress", registry.AttachInProgress, true),
		Entry("app ready", registry.AttachAppReady, true),
		Entry("detach complete", registry.AttachDetachComplete, true),
	)
})
