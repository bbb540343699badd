package coord_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Akheon23/cuda-gdb/coord"
)

// fakeSource is a minimal in-memory coord.Source used to exercise the
// iterator without pulling in the cache package.
type fakeSource struct {
	numDevices, numSMs, numWarps, numLanes uint32
	validWarps, brokenWarps                map[[2]uint32]uint64
	validLanes, activeLanes                map[[3]uint32]uint64
	warpKernel, warpGrid                   map[[3]uint32]uint64
	warpBlock                              map[[3]uint32]coord.Dim3Shape
	laneThread                             map[[4]uint32]coord.Dim3Shape
	kernelGrid, kernelBlock                map[uint64]coord.Dim3Shape
	kernelDevice                           map[uint64]uint32
	kernelIDs                              []uint64
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		numDevices: 1, numSMs: 2, numWarps: 2, numLanes: 4,
		validWarps:  map[[2]uint32]uint64{},
		brokenWarps: map[[2]uint32]uint64{},
		validLanes:  map[[3]uint32]uint64{},
		activeLanes: map[[3]uint32]uint64{},
		warpKernel:  map[[3]uint32]uint64{},
		warpGrid:    map[[3]uint32]uint64{},
		warpBlock:   map[[3]uint32]coord.Dim3Shape{},
		laneThread:  map[[4]uint32]coord.Dim3Shape{},
		kernelGrid:  map[uint64]coord.Dim3Shape{},
		kernelBlock: map[uint64]coord.Dim3Shape{},
		kernelDevice: map[uint64]uint32{},
	}
}

func (f *fakeSource) NumDevices() uint32      { return f.numDevices }
func (f *fakeSource) NumSMs(uint32) uint32    { return f.numSMs }
func (f *fakeSource) NumWarps(uint32) uint32  { return f.numWarps }
func (f *fakeSource) NumLanes(uint32) uint32  { return f.numLanes }

func (f *fakeSource) ValidWarpsMask(dev, sm uint32) uint64  { return f.validWarps[[2]uint32{dev, sm}] }
func (f *fakeSource) BrokenWarpsMask(dev, sm uint32) uint64 { return f.brokenWarps[[2]uint32{dev, sm}] }
func (f *fakeSource) ValidLanesMask(dev, sm, wp uint32) uint64 {
	return f.validLanes[[3]uint32{dev, sm, wp}]
}
func (f *fakeSource) ActiveLanesMask(dev, sm, wp uint32) uint64 {
	return f.activeLanes[[3]uint32{dev, sm, wp}]
}

func (f *fakeSource) WarpKernelID(dev, sm, wp uint32) (uint64, bool) {
	v, ok := f.warpKernel[[3]uint32{dev, sm, wp}]
	return v, ok
}
func (f *fakeSource) WarpGridID(dev, sm, wp uint32) (uint64, bool) {
	v, ok := f.warpGrid[[3]uint32{dev, sm, wp}]
	return v, ok
}
func (f *fakeSource) WarpBlockIdx(dev, sm, wp uint32) (coord.Dim3Shape, bool) {
	v, ok := f.warpBlock[[3]uint32{dev, sm, wp}]
	return v, ok
}
func (f *fakeSource) LaneThreadIdx(dev, sm, wp, ln uint32) (coord.Dim3Shape, bool) {
	v, ok := f.laneThread[[4]uint32{dev, sm, wp, ln}]
	return v, ok
}

func (f *fakeSource) LiveKernelIDs() []uint64 { return f.kernelIDs }
func (f *fakeSource) KernelGridDim(id uint64) (coord.Dim3Shape, bool) {
	v, ok := f.kernelGrid[id]
	return v, ok
}
func (f *fakeSource) KernelBlockDim(id uint64) (coord.Dim3Shape, bool) {
	v, ok := f.kernelBlock[id]
	return v, ok
}
func (f *fakeSource) KernelDeviceID(id uint64) (uint32, bool) {
	v, ok := f.kernelDevice[id]
	return v, ok
}

// oneWarpOfFourLanes marks (dev,sm,wp) live with all 4 lanes valid+active,
// running kernel/grid 1, block (0,0,0), threads (0..3,0,0).
func (f *fakeSource) oneWarpOfFourLanes(dev, sm, wp uint32, kernelID uint64) {
	f.validWarps[[2]uint32{dev, sm}] |= 1 << wp
	f.validLanes[[3]uint32{dev, sm, wp}] = 0xF
	f.activeLanes[[3]uint32{dev, sm, wp}] = 0xF
	f.warpKernel[[3]uint32{dev, sm, wp}] = kernelID
	f.warpGrid[[3]uint32{dev, sm, wp}] = kernelID
	f.warpBlock[[3]uint32{dev, sm, wp}] = coord.Dim3Shape{X: 0, Y: 0, Z: 0}
	for ln := uint32(0); ln < 4; ln++ {
		f.laneThread[[4]uint32{dev, sm, wp, ln}] = coord.Dim3Shape{X: ln, Y: 0, Z: 0}
	}
	f.kernelGrid[kernelID] = coord.Dim3Shape{X: 1, Y: 1, Z: 1}
	f.kernelBlock[kernelID] = coord.Dim3Shape{X: 4, Y: 1, Z: 1}
	f.kernelDevice[kernelID] = dev
	found := false
	for _, id := range f.kernelIDs {
		if id == kernelID {
			found = true
		}
	}
	if !found {
		f.kernelIDs = append(f.kernelIDs, kernelID)
	}
}

var _ = Describe("Iterator", func() {
	var src *fakeSource

	BeforeEach(func() {
		src = newFakeSource()
		src.oneWarpOfFourLanes(0, 0, 0, 1)
	})

	It("prunes warps not in the valid-warps mask under SELECT_VALID", func() {
		filter := coord.Filter()
		it := coord.NewIterator(filter, coord.Warps, coord.Valid, src)
		Expect(it.Size()).To(Equal(1))
		Expect(it.Current().SM.Value).To(BeEquivalentTo(0))
		Expect(it.Current().Warp.Value).To(BeEquivalentTo(0))
	})

	It("includes invalid warps under SELECT_ALL", func() {
		filter := coord.Filter()
		it := coord.NewIterator(filter, coord.Warps, coord.All, src)
		// 1 device * 2 sms * 2 warps = 4 total warp slots.
		Expect(it.Size()).To(Equal(4))
	})

	It("enumerates lanes ascending within a warp", func() {
		filter := coord.Filter()
		it := coord.NewIterator(filter, coord.Lanes, coord.Valid, src)
		Expect(it.Size()).To(Equal(4))
		var lanes []uint64
		for ; !it.End(); it.Next() {
			lanes = append(lanes, it.Current().Lane.Value)
		}
		Expect(lanes).To(Equal([]uint64{0, 1, 2, 3}))
	})

	It("is restartable and yields the same sequence after live state is unchanged", func() {
		filter := coord.Filter()
		it := coord.NewIterator(filter, coord.Lanes, coord.Valid, src)
		first := it.Size()
		it.Start()
		Expect(it.Size()).To(Equal(first))
	})

	It("coalesces nothing itself at BLOCKS granularity: one entry per block", func() {
		filter := coord.Filter()
		it := coord.NewIterator(filter, coord.Blocks, coord.Valid, src)
		Expect(it.Size()).To(Equal(1))
	})

	It("emits one entry per live thread at THREADS granularity", func() {
		filter := coord.Filter()
		it := coord.NewIterator(filter, coord.Threads, coord.Valid, src)
		Expect(it.Size()).To(Equal(4))
	})

	It("finds the exact physical match when the request is fully physical and live", func() {
		request := coord.Coord{Dev: coord.Lit(0), SM: coord.Lit(0), Warp: coord.Lit(0), Lane: coord.Lit(2),
			KernelID: coord.Wild(), GridID: coord.Wild(), BlockIdx: coord.WildDim3(), ThreadIdx: coord.WildDim3()}
		m := coord.FindValid(request, src)
		Expect(m[coord.ExactPhysical].Valid).To(BeTrue())
		Expect(m[coord.ExactPhysical].Lane.Value).To(BeEquivalentTo(2))
	})

	It("reports no exact physical match for a dead coordinate", func() {
		request := coord.Coord{Dev: coord.Lit(0), SM: coord.Lit(1), Warp: coord.Lit(0), Lane: coord.Lit(0),
			KernelID: coord.Wild(), GridID: coord.Wild(), BlockIdx: coord.WildDim3(), ThreadIdx: coord.WildDim3()}
		m := coord.FindValid(request, src)
		Expect(m[coord.ExactPhysical].Valid).To(BeFalse())
	})

	It("finds the unique live lane by logical coordinate", func() {
		request := coord.Coord{Dev: coord.Wild(), SM: coord.Wild(), Warp: coord.Wild(), Lane: coord.Wild(),
			KernelID: coord.Lit(1), GridID: coord.Lit(1),
			BlockIdx: coord.LitDim3(0, 0, 0), ThreadIdx: coord.LitDim3(3, 0, 0)}
		m := coord.FindValid(request, src)
		Expect(m[coord.ExactLogical].Valid).To(BeTrue())
		Expect(m[coord.ExactLogical].Lane.Value).To(BeEquivalentTo(3))
	})
})
