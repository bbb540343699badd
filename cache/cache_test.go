package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Akheon23/cuda-gdb/cache"
	"github.com/Akheon23/cuda-gdb/debugapi"
	"github.com/Akheon23/cuda-gdb/internal/fakeapi"
)

// countingAPI wraps fakeapi.API and counts calls to the handful of methods
// these tests care about, to prove the cache fetches at most once per
// presence bit.
type countingAPI struct {
	*fakeapi.API
	pcCalls, validLaneCalls, singleStepCalls, exceptionStateCalls int
}

func (c *countingAPI) PC(dev, sm, warp, lane uint32) (uint64, error) {
	c.pcCalls++
	return c.API.PC(dev, sm, warp, lane)
}

func (c *countingAPI) ValidLanes(dev, sm, warp uint32) (uint64, error) {
	c.validLaneCalls++
	return c.API.ValidLanes(dev, sm, warp)
}

func (c *countingAPI) SingleStepWarp(dev, sm, warp uint32) (uint64, error) {
	c.singleStepCalls++
	return c.API.SingleStepWarp(dev, sm, warp)
}

func (c *countingAPI) DeviceExceptionState(dev uint32) (uint64, error) {
	c.exceptionStateCalls++
	return c.API.DeviceExceptionState(dev)
}

// steppingBeyondRequestAPI reports every step as having moved both warps of
// sm 0, regardless of which warp was requested, to exercise Device's
// single-step invalidation fallback.
type steppingBeyondRequestAPI struct {
	*fakeapi.API
	validWarpsCalls int
}

func (s *steppingBeyondRequestAPI) SingleStepWarp(dev, sm, warp uint32) (uint64, error) {
	return 0b11, nil
}

func (s *steppingBeyondRequestAPI) ValidWarps(dev, sm uint32) (uint64, error) {
	s.validWarpsCalls++
	return s.API.ValidWarps(dev, sm)
}

type fakeKernelRegistry struct {
	invalidated []uint32
}

func (f *fakeKernelRegistry) FindByGridID(uint64) (uint64, bool)   { return 0, false }
func (f *fakeKernelRegistry) EnsureByGridID(dev uint32, gridID uint64) uint64 { return gridID }
func (f *fakeKernelRegistry) InvalidateDevice(dev uint32)          { f.invalidated = append(f.invalidated, dev) }
func (f *fakeKernelRegistry) LiveKernelIDs() []uint64              { return nil }
func (f *fakeKernelRegistry) KernelGridDim(uint64) (debugapi.Dim3, bool)  { return debugapi.Dim3{}, false }
func (f *fakeKernelRegistry) KernelBlockDim(uint64) (debugapi.Dim3, bool) { return debugapi.Dim3{}, false }
func (f *fakeKernelRegistry) KernelDeviceID(uint64) (uint32, bool)        { return 0, false }

func newOneWarpSystem() (*countingAPI, *fakeKernelRegistry, *cache.System) {
	api := &countingAPI{API: fakeapi.New()}
	api.Devices[0] = &fakeapi.Device{
		NumSMs: 1, NumWarps: 1, NumLanes: 2,
		SMs: map[uint32]*fakeapi.SM{
			0: {ValidMask: 1, Warps: map[uint32]*fakeapi.Warp{
				0: {
					ValidLanes: 0b11, ActiveLanes: 0b11,
					Lanes: map[uint32]*fakeapi.Lane{0: {PC: 0x100}, 1: {PC: 0x999}},
				},
			}},
		},
	}
	kernels := &fakeKernelRegistry{}
	sys := cache.NewSystem(api, kernels, 1, false)
	return api, kernels, sys
}

var _ = Describe("State cache", func() {
	It("shares an active lane's PC with the rest of the warp", func() {
		api, _, sys := newOneWarpSystem()
		dev := sys.Device(0)

		sm, err := dev.SM(0)
		Expect(err).NotTo(HaveOccurred())
		warp := sm.Warp(0)

		pc0, err := warp.Lane(0).PC()
		Expect(err).NotTo(HaveOccurred())
		Expect(pc0).To(Equal(uint64(0x100)))

		pc1, err := warp.Lane(1).PC()
		Expect(err).NotTo(HaveOccurred())
		Expect(pc1).To(Equal(uint64(0x100)), "lane 1 should observe lane 0's shared PC fetch")

		Expect(api.pcCalls).To(Equal(1))
	})

	It("fetches a field at most once before invalidation", func() {
		api, _, sys := newOneWarpSystem()
		sm, _ := sys.Device(0).SM(0)
		warp := sm.Warp(0)

		_, _ = warp.ValidLanesMask()
		_, _ = warp.ValidLanesMask()
		_, _ = warp.ValidLanesMask()

		Expect(api.validLaneCalls).To(Equal(1))
	})

	It("invalidates every kernel of a device on resume", func() {
		_, kernels, sys := newOneWarpSystem()
		dev := sys.Device(0)

		_, _ = dev.SM(0)
		Expect(dev.Resume()).To(Succeed())

		Expect(kernels.invalidated).To(Equal([]uint32{0}))
	})

	It("falls back to full invalidation when single-step steps warps outside the request", func() {
		api := &steppingBeyondRequestAPI{API: fakeapi.New()}
		api.Devices[0] = &fakeapi.Device{
			NumSMs: 1, NumWarps: 2, NumLanes: 1,
			SMs: map[uint32]*fakeapi.SM{
				0: {ValidMask: 0b11, Warps: map[uint32]*fakeapi.Warp{
					0: {Lanes: map[uint32]*fakeapi.Lane{0: {PC: 1}}},
					1: {Lanes: map[uint32]*fakeapi.Lane{0: {PC: 2}}},
				}},
			},
		}
		kernels := &fakeKernelRegistry{}
		sys := cache.NewSystem(api, kernels, 1, false)
		dev := sys.Device(0)
		sm, _ := dev.SM(0)

		// Populate the valid-warps mask before stepping; single-stepping
		// warp 0 but having the backend report both warps as stepped must
		// fall back to a full device invalidation, which clears this
		// presence bit and forces a fresh fetch on next read.
		_, _ = sm.ValidWarpsMask()
		before := api.validWarpsCalls

		Expect(dev.SingleStepWarp(0, 0)).To(Succeed())
		_, _ = sm.ValidWarpsMask()

		Expect(api.validWarpsCalls).To(Equal(before + 1))
	})

	It("stamps lanes exception-none outside the exception mask", func() {
		api, _, sys := newOneWarpSystem()
		api.Devices[0].ExceptionSMs = 0 // SM 0 is not in the exception mask
		dev := sys.Device(0)

		Expect(dev.FilterExceptionState()).To(Succeed())

		sm, _ := dev.SM(0)
		warp := sm.Warp(0)
		exc, err := warp.Lane(0).Exception()
		Expect(err).NotTo(HaveOccurred())
		Expect(exc).To(Equal(debugapi.ExceptionNone))
		Expect(api.exceptionStateCalls).To(Equal(1))
	})
})
