package cache

import (
	"github.com/Akheon23/cuda-gdb/coord"
	"github.com/Akheon23/cuda-gdb/debugapi"
)

// KernelInfoProvider is the subset of the kernel registry the System needs
// to serve coord.Source's logical-granularity queries (KERNELS/BLOCKS/
// THREADS). Declared here, implemented by package registry, to keep the
// dependency direction leaf-to-root per spec.md §2 (coord, the algebra, sits
// below cache, the state mirror; registry sits above both and is reached
// only through this narrow interface).
type KernelInfoProvider interface {
	LiveKernelIDs() []uint64
	KernelGridDim(id uint64) (debugapi.Dim3, bool)
	KernelBlockDim(id uint64) (debugapi.Dim3, bool)
	KernelDeviceID(id uint64) (uint32, bool)
}

// System is the process-wide set of per-device caches. It implements
// coord.Source so a coord.Iterator can prune its enumeration against live
// state.
type System struct {
	api     debugapi.API
	kernels KernelInvalidator
	info    KernelInfoProvider
	devices []*Device
}

// kernelRegistry is the combined capability NewSystem requires from the
// kernel registry: it both invalidates on resume and answers logical
// lookups.
type kernelRegistry interface {
	KernelInvalidator
	KernelInfoProvider
}

// NewSystem builds the device caches once numDevices is known. kernels must
// implement both KernelInvalidator and KernelInfoProvider (package
// registry's Kernels type does). deferLaunch is
// command.Options.DeferKernelLaunchNotifications, threaded down to every
// warp's Kernel() resolution.
func NewSystem(api debugapi.API, kernels kernelRegistry, numDevices uint32, deferLaunch bool) *System {
	sys := &System{api: api, kernels: kernels, info: kernels}
	sys.devices = make([]*Device, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		sys.devices[i] = NewDevice(i, api, kernels, nil, deferLaunch)
	}
	return sys
}

func (s *System) Device(dev uint32) *Device { return s.devices[dev] }

func (s *System) NumDevices() uint32 { return uint32(len(s.devices)) }

func (s *System) NumSMs(dev uint32) uint32 {
	n, err := s.devices[dev].NumSMs()
	if err != nil {
		return 0
	}
	return n
}

func (s *System) NumWarps(dev uint32) uint32 {
	n, err := s.devices[dev].NumWarps()
	if err != nil {
		return 0
	}
	return n
}

func (s *System) NumLanes(dev uint32) uint32 {
	n, err := s.devices[dev].NumLanes()
	if err != nil {
		return 0
	}
	return n
}

func (s *System) sm(dev, sm uint32) *SM {
	v, err := s.devices[dev].SM(sm)
	if err != nil {
		return nil
	}
	return v
}

func (s *System) ValidWarpsMask(dev, sm uint32) uint64 {
	m := s.sm(dev, sm)
	if m == nil {
		return 0
	}
	v, _ := m.ValidWarpsMask()
	return v
}

func (s *System) BrokenWarpsMask(dev, sm uint32) uint64 {
	m := s.sm(dev, sm)
	if m == nil {
		return 0
	}
	v, _ := m.BrokenWarpsMask()
	return v
}

func (s *System) warp(dev, sm, wp uint32) *Warp {
	m := s.sm(dev, sm)
	if m == nil {
		return nil
	}
	return m.Warp(wp)
}

func (s *System) ValidLanesMask(dev, sm, wp uint32) uint64 {
	w := s.warp(dev, sm, wp)
	if w == nil {
		return 0
	}
	v, _ := w.ValidLanesMask()
	return v
}

func (s *System) ActiveLanesMask(dev, sm, wp uint32) uint64 {
	w := s.warp(dev, sm, wp)
	if w == nil {
		return 0
	}
	v, _ := w.ActiveLanesMask()
	return v
}

func (s *System) WarpKernelID(dev, sm, wp uint32) (uint64, bool) {
	w := s.warp(dev, sm, wp)
	if w == nil {
		return 0, false
	}
	id, ok, err := w.Kernel()
	if err != nil {
		return 0, false
	}
	return id, ok
}

func (s *System) WarpGridID(dev, sm, wp uint32) (uint64, bool) {
	w := s.warp(dev, sm, wp)
	if w == nil {
		return 0, false
	}
	id, err := w.GridID()
	if err != nil {
		return 0, false
	}
	return id, true
}

func toShape(d debugapi.Dim3) coord.Dim3Shape {
	return coord.Dim3Shape{X: d.X, Y: d.Y, Z: d.Z}
}

func (s *System) WarpBlockIdx(dev, sm, wp uint32) (coord.Dim3Shape, bool) {
	w := s.warp(dev, sm, wp)
	if w == nil {
		return coord.Dim3Shape{}, false
	}
	d, err := w.BlockIdx()
	if err != nil {
		return coord.Dim3Shape{}, false
	}
	return toShape(d), true
}

func (s *System) LaneThreadIdx(dev, sm, wp, ln uint32) (coord.Dim3Shape, bool) {
	w := s.warp(dev, sm, wp)
	if w == nil {
		return coord.Dim3Shape{}, false
	}
	d, err := w.Lane(ln).ThreadIdx()
	if err != nil {
		return coord.Dim3Shape{}, false
	}
	return toShape(d), true
}

func (s *System) LiveKernelIDs() []uint64 { return s.info.LiveKernelIDs() }

func (s *System) KernelGridDim(id uint64) (coord.Dim3Shape, bool) {
	d, ok := s.info.KernelGridDim(id)
	return toShape(d), ok
}

func (s *System) KernelBlockDim(id uint64) (coord.Dim3Shape, bool) {
	d, ok := s.info.KernelBlockDim(id)
	return toShape(d), ok
}

func (s *System) KernelDeviceID(id uint64) (uint32, bool) {
	return s.info.KernelDeviceID(id)
}

var _ coord.Source = (*System)(nil)
