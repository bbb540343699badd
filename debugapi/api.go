// Package debugapi declares the narrow, synchronous contract the core
// speaks downward to the accelerator's debug API (spec.md §6, "Downward").
// Every operation returns a typed error; a fetch the backend reports as
// failed must terminate the caller's current command with no partial
// population, per spec.md §4.2's failure semantics.
package debugapi

import "fmt"

// Err wraps a backend failure code, used to populate command.ErrAPI.
type Err struct {
	Op   string
	Code int
}

func (e *Err) Error() string {
	return fmt.Sprintf("debugapi: %s failed (code %d)", e.Op, e.Code)
}

// Exception identifies a lane exception kind.
type Exception int

const (
	ExceptionNone Exception = iota
	ExceptionUnknown
	ExceptionStackOverflow
	ExceptionMisalignedAddress
	ExceptionInvalidAddress
	ExceptionIllegalInstruction
	ExceptionAssert
)

// Dim3 is a plain 3-D extent/index, independent of package coord to keep
// this package free of any dependency on the coordinate algebra.
type Dim3 struct {
	X, Y, Z uint32
}

// KernelType distinguishes user kernels from driver-internal ones.
type KernelType int

const (
	KernelApplication KernelType = iota
	KernelSystem
)

// AttachState is the attach/detach phase; registry.AttachState is an alias
// of it (registry depends on debugapi, not the other way around).
type AttachState int

const (
	AttachNotStarted AttachState = iota
	AttachInProgress
	AttachAppReady
	AttachDetachComplete
)

// EventKind tags a debug-API event.
type EventKind int

const (
	EventNone EventKind = iota
	EventCtxCreate
	EventCtxDestroy
	EventCtxPush
	EventCtxPop
	EventElfImageLoaded
	EventKernelReady
	EventKernelFinished
	EventInternalError
	EventTimeout
	EventAttachComplete
	EventDetachComplete
)

// InvalidThreadID is the sentinel ("NONE") thread id spec.md §4.3 requires
// every context/kernel event handler to reject.
const InvalidThreadID = ^uint32(0)

// Event is the tagged union of every debug-API event kind. Only the fields
// relevant to Kind are meaningful.
type Event struct {
	Kind EventKind

	Device    uint32
	ContextID uint64
	ModuleID  uint64
	ThreadID  uint32

	ElfImage     []byte
	GridID       uint64
	ParentGridID uint64
	Entry        uint64
	GridDim      Dim3
	BlockDim     Dim3
	KernelType   KernelType

	InternalErrorCode int
}

// API is the downward surface the core's cache, event processor, and
// registries consume. A single implementation backs both native and remote
// transports; RemoteBatched reports which fetch path to prefer (spec.md
// §4.2 "Remote batching").
type API interface {
	RemoteBatched() bool
	SoftwarePreemptionEnabled() bool

	NumDevices() (uint32, error)
	NumSMs(dev uint32) (uint32, error)
	NumWarps(dev uint32) (uint32, error)
	NumLanes(dev uint32) (uint32, error)
	NumRegisters(dev uint32) (uint32, error)
	DeviceType(dev uint32) (string, error)
	SMType(dev uint32) (string, error)

	ValidWarps(dev, sm uint32) (uint64, error)
	BrokenWarps(dev, sm uint32) (uint64, error)
	ValidLanes(dev, sm, warp uint32) (uint64, error)
	ActiveLanes(dev, sm, warp uint32) (uint64, error)
	GridID(dev, sm, warp uint32) (uint64, error)
	BlockIdx(dev, sm, warp uint32) (Dim3, error)
	ThreadIdx(dev, sm, warp, lane uint32) (Dim3, error)
	PC(dev, sm, warp, lane uint32) (uint64, error)
	VirtualPC(dev, sm, warp, lane uint32) (uint64, error)
	LaneException(dev, sm, warp, lane uint32) (Exception, error)
	Register(dev, sm, warp, lane uint32, n uint32) (uint32, error)
	CallDepth(dev, sm, warp, lane uint32) (int32, error)
	SyscallCallDepth(dev, sm, warp, lane uint32) (int32, error)
	VirtualReturnAddress(dev, sm, warp, lane uint32, level int32) (uint64, error)
	DeviceExceptionState(dev uint32) (uint64, error)
	MemcheckErrorAddress(dev, sm, warp, lane uint32) (uint64, error)
	GridInfo(dev uint32, gridID uint64) (KernelInfo, error)
	// FetchWarpState returns every per-warp field package cache can derive
	// from a single round trip, consulted instead of GridID/BlockIdx/
	// ValidLanes/ActiveLanes individually when RemoteBatched reports true.
	FetchWarpState(dev, sm, warp uint32) (WarpSnapshot, error)

	SuspendDevice(dev uint32) error
	ResumeDevice(dev uint32) error
	// SingleStepWarp steps warp w and returns the mask of warps that were
	// actually stepped, which may be a superset of {w}.
	SingleStepWarp(dev, sm, warp uint32) (steppedMask uint64, err error)

	NextSyncEvent() (Event, bool, error)
	NextAsyncEvent() (Event, bool, error)

	AttachState() AttachState
	SetAttachState(AttachState)
}

// WarpSnapshot is what FetchWarpState reports about one warp in a single
// remote round trip, used by the batched-fetch path instead of four separate
// GridID/BlockIdx/ValidLanes/ActiveLanes calls.
type WarpSnapshot struct {
	GridID      uint64
	BlockIdx    Dim3
	ValidLanes  uint64
	ActiveLanes uint64
}

// KernelInfo is what GridInfo reports about a launched grid.
type KernelInfo struct {
	ContextID   uint64
	ModuleID    uint64
	VirtCodeBase uint64
	GridDim     Dim3
	BlockDim    Dim3
	Type        KernelType
	ParentGridID uint64
}
