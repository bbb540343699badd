package command_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Akheon23/cuda-gdb/command"
	"github.com/Akheon23/cuda-gdb/coord"
)

// fakeSource is a tiny coord.Source with one device, one SM, one warp of two
// lanes, enough to exercise Switch/Info without the full cache package.
type fakeSource struct{}

func (fakeSource) NumDevices() uint32         { return 1 }
func (fakeSource) NumSMs(uint32) uint32       { return 1 }
func (fakeSource) NumWarps(uint32) uint32     { return 1 }
func (fakeSource) NumLanes(uint32) uint32     { return 2 }
func (fakeSource) ValidWarpsMask(uint32, uint32) uint64         { return 1 }
func (fakeSource) BrokenWarpsMask(uint32, uint32) uint64        { return 0 }
func (fakeSource) ValidLanesMask(uint32, uint32, uint32) uint64 { return 0b11 }
func (fakeSource) ActiveLanesMask(uint32, uint32, uint32) uint64 { return 0b11 }
func (fakeSource) WarpKernelID(uint32, uint32, uint32) (uint64, bool) { return 1, true }
func (fakeSource) WarpGridID(uint32, uint32, uint32) (uint64, bool)   { return 1, true }
func (fakeSource) WarpBlockIdx(uint32, uint32, uint32) (coord.Dim3Shape, bool) {
	return coord.Dim3Shape{}, true
}
func (fakeSource) LaneThreadIdx(_, _, _, lane uint32) (coord.Dim3Shape, bool) {
	return coord.Dim3Shape{X: lane}, true
}
func (fakeSource) LiveKernelIDs() []uint64 { return []uint64{1} }
func (fakeSource) KernelGridDim(uint64) (coord.Dim3Shape, bool)  { return coord.Dim3Shape{X: 1, Y: 1, Z: 1}, true }
func (fakeSource) KernelBlockDim(uint64) (coord.Dim3Shape, bool) { return coord.Dim3Shape{X: 2, Y: 1, Z: 1}, true }
func (fakeSource) KernelDeviceID(uint64) (uint32, bool)          { return 0, true }

var _ coord.Source = fakeSource{}

var _ = Describe("Dispatcher", func() {
	var (
		focus *coord.Focus
		d     *command.Dispatcher
	)

	BeforeEach(func() {
		focus = &coord.Focus{}
		d = command.NewDispatcher(fakeSource{}, focus, command.DefaultOptions())
	})

	It("switches focus to an exact live lane", func() {
		got, err := d.Switch(coord.Lanes, "device=0,sm=0,warp=0,lane=1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Lane.Value).To(Equal(uint64(1)))

		cur, ok := focus.Get()
		Expect(ok).To(BeTrue())
		Expect(cur.Equal(got)).To(BeTrue())
	})

	It("reports incomplete when a required physical axis is wildcarded", func() {
		_, err := d.Switch(coord.Lanes, "device=0,sm=0,warp=*,lane=1")
		Expect(err).To(HaveOccurred())
		cmdErr, ok := err.(*command.Error)
		Expect(ok).To(BeTrue())
		Expect(cmdErr.Kind).To(Equal(command.ErrIncomplete))
	})

	It("reports not found for a nonexistent lane", func() {
		_, err := d.Switch(coord.Lanes, "device=0,sm=0,warp=0,lane=5")
		Expect(err).To(HaveOccurred())
	})

	It("renders an info table for lanes", func() {
		out, err := d.Info(coord.Lanes, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Lane"))
	})

	It("coalesces contiguous lane rows", func() {
		out, err := d.Info(coord.Lanes, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("0-1"))
	})

	It("coalesces contiguous thread rows into a from/to range", func() {
		out, err := d.Info(coord.Threads, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("from=(0,0,0)"))
		Expect(out).To(ContainSubstring("to=(1,0,0)"))
	})
})
