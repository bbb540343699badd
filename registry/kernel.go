package registry

import "github.com/Akheon23/cuda-gdb/debugapi"

// Kernel is a launched instance of a device function (spec.md §3). It
// back-references its device and context by id, never by pointer, so warps
// (and anything else) resolve it through Kernels.FindByGridID rather than
// holding an owning reference (spec.md §9).
type Kernel struct {
	ID           uint64
	Device       uint32
	ContextID    uint64
	ModuleID     uint64
	GridID       uint64
	ParentGridID uint64
	VirtCodeBase uint64
	GridDim      debugapi.Dim3
	BlockDim     debugapi.Dim3
	Type         debugapi.KernelType
	alive        bool

	sourceLineCacheCleared bool
}

func (k *Kernel) IsAlive() bool { return k.alive }

// Kernels is the process-wide kernel registry (spec.md §4.5): kernels are
// owned here, not by any device, even though each back-references its
// device and context.
type Kernels struct {
	byGridID map[uint64]*Kernel
	order    []uint64 // grid ids in registration order, for stable iteration
	nextID   uint64
}

func NewKernels() *Kernels {
	return &Kernels{byGridID: map[uint64]*Kernel{}}
}

// Start implements KERNEL_READY's kernel-registration half (auto-breakpoint
// placement is the event processor's job, since it needs the host-debugger
// collaborator).
func (k *Kernels) Start(
	dev uint32, gridID uint64, virtCodeBase uint64, contextID, moduleID uint64,
	gridDim, blockDim debugapi.Dim3, kind debugapi.KernelType, parentGridID uint64,
) *Kernel {
	k.nextID++
	kernel := &Kernel{
		ID: k.nextID, Device: dev, ContextID: contextID, ModuleID: moduleID,
		GridID: gridID, ParentGridID: parentGridID, VirtCodeBase: virtCodeBase,
		GridDim: gridDim, BlockDim: blockDim, Type: kind, alive: true,
	}
	k.byGridID[gridID] = kernel
	k.order = append(k.order, gridID)
	return kernel
}

// Terminate implements KERNEL_FINISHED's registry half: mark not-alive.
// Detaching it from warps happens lazily on next lookup, not eagerly
// (spec.md §3 lifecycle table).
func (k *Kernels) Terminate(gridID uint64) *Kernel {
	kernel, ok := k.byGridID[gridID]
	if !ok {
		return nil
	}
	kernel.alive = false
	return kernel
}

func (k *Kernels) FindByGridID(gridID uint64) (uint64, bool) {
	kernel, ok := k.byGridID[gridID]
	if !ok || !kernel.alive {
		return 0, false
	}
	return kernel.ID, true
}

// EnsureByGridID returns gridID's kernel id, registering a placeholder
// kernel on dev (zero grid/block dims, application type, no parent) first
// if none is registered yet. Mirrors the original's device_create_kernel
// fallback in warp_get_kernel (original_source/gdb/cuda-state.c), used when
// DeferKernelLaunchNotifications lets a warp reference a kernel before its
// KERNEL_READY event has been processed.
func (k *Kernels) EnsureByGridID(dev uint32, gridID uint64) uint64 {
	if kernel, ok := k.byGridID[gridID]; ok {
		return kernel.ID
	}
	kernel := k.Start(dev, gridID, 0, 0, 0, debugapi.Dim3{}, debugapi.Dim3{}, debugapi.KernelApplication, 0)
	return kernel.ID
}

func (k *Kernels) Lookup(gridID uint64) *Kernel {
	return k.byGridID[gridID]
}

func (k *Kernels) IsPresent(gridID uint64) bool {
	_, ok := k.byGridID[gridID]
	return ok
}

// Invalidate clears a kernel's derived cached info (source-line cache,
// displays) without removing it from the registry, per the table's
// "invalidate (clears derived cached info)" operation. The host-debugger
// side-effects (clear_current_source_symtab_and_line/clear_displays) are
// represented here only as an unexported flag on the kernel; nothing outside
// this package reads it.
func (k *Kernels) Invalidate(gridID uint64) {
	kernel, ok := k.byGridID[gridID]
	if !ok {
		return
	}
	kernel.sourceLineCacheCleared = true
}

// InvalidateDevice marks every kernel of dev invalid, implementing the
// cache's "Resume device: ... invalidate every kernel of d" rule (spec.md
// §4.2). It satisfies cache.KernelInvalidator.
func (k *Kernels) InvalidateDevice(dev uint32) {
	for _, gridID := range k.order {
		kernel := k.byGridID[gridID]
		if kernel.Device == dev {
			k.Invalidate(gridID)
		}
	}
}

// LiveKernelIDs returns the Kernel.ID of every still-alive kernel, in
// registration order, satisfying cache.KernelInfoProvider.
func (k *Kernels) LiveKernelIDs() []uint64 {
	var out []uint64
	for _, gridID := range k.order {
		kernel := k.byGridID[gridID]
		if kernel.alive {
			out = append(out, kernel.ID)
		}
	}
	return out
}

func (k *Kernels) byKernelID(id uint64) *Kernel {
	for _, gridID := range k.order {
		if kernel := k.byGridID[gridID]; kernel.ID == id {
			return kernel
		}
	}
	return nil
}

func (k *Kernels) KernelGridDim(id uint64) (debugapi.Dim3, bool) {
	kernel := k.byKernelID(id)
	if kernel == nil {
		return debugapi.Dim3{}, false
	}
	return kernel.GridDim, true
}

func (k *Kernels) KernelBlockDim(id uint64) (debugapi.Dim3, bool) {
	kernel := k.byKernelID(id)
	if kernel == nil {
		return debugapi.Dim3{}, false
	}
	return kernel.BlockDim, true
}

func (k *Kernels) KernelDeviceID(id uint64) (uint32, bool) {
	kernel := k.byKernelID(id)
	if kernel == nil {
		return 0, false
	}
	return kernel.Device, true
}
