// Package fakeapi is an in-memory debugapi.API implementation used to drive
// the core end to end in tests without a transport (spec.md's Non-goals
// exclude building a real transport; this is test/demo scaffolding only,
// grounded on the teacher's habit of hand-written fakes rather than
// generated mocks for simple interfaces, see e.g. zeonica's core/emu_test.go
// fixtures).
package fakeapi

import (
	"sync"

	"github.com/Akheon23/cuda-gdb/debugapi"
)

// SM is one fake streaming multiprocessor's state.
type SM struct {
	ValidMask, BrokenMask uint64
	Warps                 map[uint32]*Warp
}

// Warp is one fake warp's state.
type Warp struct {
	ValidLanes, ActiveLanes uint64
	GridID                  uint64
	BlockIdx                debugapi.Dim3
	Lanes                   map[uint32]*Lane
}

// Lane is one fake lane's state.
type Lane struct {
	PC, VirtualPC uint64
	ThreadIdx     debugapi.Dim3
	Exception     debugapi.Exception
}

// Device is one fake accelerator's state.
type Device struct {
	NumSMs, NumWarps, NumLanes, NumRegisters uint32
	DeviceType, SMType                       string
	ExceptionSMs                             uint64
	SMs                                      map[uint32]*SM
	Valid                                    bool
}

// Grid is what GridInfo reports for a launched kernel.
type Grid = debugapi.KernelInfo

// API is a fully in-memory debugapi.API. All accessors are safe to call
// concurrently with event injection (EmitSync/EmitAsync) through a single
// mutex, mirroring the real backend's own internal synchronization.
type API struct {
	mu sync.Mutex

	Devices    map[uint32]*Device
	Grids      map[uint64]*Grid
	Preemption bool
	Remote     bool
	attach     debugapi.AttachState

	syncQueue  []debugapi.Event
	asyncQueue []debugapi.Event

	FailOp string // when set, every call whose Op matches this name errors
}

func New() *API {
	return &API{Devices: map[uint32]*Device{}, Grids: map[uint64]*Grid{}}
}

func (a *API) fail(op string) error {
	if a.FailOp == op {
		return &debugapi.Err{Op: op, Code: -1}
	}
	return nil
}

func (a *API) RemoteBatched() bool               { return a.Remote }
func (a *API) SoftwarePreemptionEnabled() bool   { return a.Preemption }

func (a *API) NumDevices() (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return uint32(len(a.Devices)), a.fail("NumDevices")
}

func (a *API) dev(d uint32) *Device {
	dev, ok := a.Devices[d]
	if !ok {
		dev = &Device{SMs: map[uint32]*SM{}}
		a.Devices[d] = dev
	}
	return dev
}

func (a *API) NumSMs(d uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dev(d).NumSMs, a.fail("NumSMs")
}

func (a *API) NumWarps(d uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dev(d).NumWarps, a.fail("NumWarps")
}

func (a *API) NumLanes(d uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dev(d).NumLanes, a.fail("NumLanes")
}

func (a *API) NumRegisters(d uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dev(d).NumRegisters, a.fail("NumRegisters")
}

func (a *API) DeviceType(d uint32) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dev(d).DeviceType, a.fail("DeviceType")
}

func (a *API) SMType(d uint32) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dev(d).SMType, a.fail("SMType")
}

func (a *API) sm(d, s uint32) *SM {
	dev := a.dev(d)
	v, ok := dev.SMs[s]
	if !ok {
		v = &SM{Warps: map[uint32]*Warp{}}
		dev.SMs[s] = v
	}
	return v
}

func (a *API) ValidWarps(d, s uint32) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sm(d, s).ValidMask, a.fail("ValidWarps")
}

func (a *API) BrokenWarps(d, s uint32) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sm(d, s).BrokenMask, a.fail("BrokenWarps")
}

func (a *API) warp(d, s, w uint32) *Warp {
	sm := a.sm(d, s)
	v, ok := sm.Warps[w]
	if !ok {
		v = &Warp{Lanes: map[uint32]*Lane{}}
		sm.Warps[w] = v
	}
	return v
}

func (a *API) ValidLanes(d, s, w uint32) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.warp(d, s, w).ValidLanes, a.fail("ValidLanes")
}

func (a *API) ActiveLanes(d, s, w uint32) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.warp(d, s, w).ActiveLanes, a.fail("ActiveLanes")
}

func (a *API) GridID(d, s, w uint32) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.warp(d, s, w).GridID, a.fail("GridID")
}

func (a *API) BlockIdx(d, s, w uint32) (debugapi.Dim3, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.warp(d, s, w).BlockIdx, a.fail("BlockIdx")
}

func (a *API) lane(d, s, w, l uint32) *Lane {
	wp := a.warp(d, s, w)
	v, ok := wp.Lanes[l]
	if !ok {
		v = &Lane{}
		wp.Lanes[l] = v
	}
	return v
}

func (a *API) ThreadIdx(d, s, w, l uint32) (debugapi.Dim3, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lane(d, s, w, l).ThreadIdx, a.fail("ThreadIdx")
}

func (a *API) PC(d, s, w, l uint32) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lane(d, s, w, l).PC, a.fail("PC")
}

func (a *API) VirtualPC(d, s, w, l uint32) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lane(d, s, w, l).VirtualPC, a.fail("VirtualPC")
}

func (a *API) LaneException(d, s, w, l uint32) (debugapi.Exception, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lane(d, s, w, l).Exception, a.fail("LaneException")
}

func (a *API) Register(d, s, w, l, n uint32) (uint32, error) {
	return 0, a.fail("Register")
}

func (a *API) CallDepth(d, s, w, l uint32) (int32, error) {
	return 0, a.fail("CallDepth")
}

func (a *API) SyscallCallDepth(d, s, w, l uint32) (int32, error) {
	return 0, a.fail("SyscallCallDepth")
}

func (a *API) VirtualReturnAddress(d, s, w, l uint32, level int32) (uint64, error) {
	return 0, a.fail("VirtualReturnAddress")
}

func (a *API) DeviceExceptionState(d uint32) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dev(d).ExceptionSMs, a.fail("DeviceExceptionState")
}

func (a *API) MemcheckErrorAddress(d, s, w, l uint32) (uint64, error) {
	return 0, a.fail("MemcheckErrorAddress")
}

// FetchWarpState answers the batched-fetch path with the same values the
// individual GridID/BlockIdx/ValidLanes/ActiveLanes accessors would report,
// so tests can exercise Remote=true without a second fake data model.
func (a *API) FetchWarpState(d, s, w uint32) (debugapi.WarpSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	wp := a.warp(d, s, w)
	return debugapi.WarpSnapshot{
		GridID:      wp.GridID,
		BlockIdx:    wp.BlockIdx,
		ValidLanes:  wp.ValidLanes,
		ActiveLanes: wp.ActiveLanes,
	}, a.fail("FetchWarpState")
}

func (a *API) GridInfo(d uint32, gridID uint64) (debugapi.KernelInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, ok := a.Grids[gridID]
	if !ok {
		return debugapi.KernelInfo{}, &debugapi.Err{Op: "GridInfo", Code: -2}
	}
	return *g, a.fail("GridInfo")
}

func (a *API) SuspendDevice(d uint32) error {
	return a.fail("SuspendDevice")
}

func (a *API) ResumeDevice(d uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dev(d).Valid = true
	return a.fail("ResumeDevice")
}

func (a *API) SingleStepWarp(d, s, w uint32) (uint64, error) {
	return 1 << w, a.fail("SingleStepWarp")
}

func (a *API) NextSyncEvent() (debugapi.Event, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.syncQueue) == 0 {
		return debugapi.Event{}, false, nil
	}
	evt := a.syncQueue[0]
	a.syncQueue = a.syncQueue[1:]
	return evt, true, nil
}

func (a *API) NextAsyncEvent() (debugapi.Event, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.asyncQueue) == 0 {
		return debugapi.Event{}, false, nil
	}
	evt := a.asyncQueue[0]
	a.asyncQueue = a.asyncQueue[1:]
	return evt, true, nil
}

func (a *API) AttachState() debugapi.AttachState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attach
}

func (a *API) SetAttachState(s debugapi.AttachState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attach = s
}

// EmitSync and EmitAsync queue an event for the next Drain to pick up,
// standing in for the real backend pushing onto its two queues.
func (a *API) EmitSync(e debugapi.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncQueue = append(a.syncQueue, e)
}

func (a *API) EmitAsync(e debugapi.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.asyncQueue = append(a.asyncQueue, e)
}

var _ debugapi.API = (*API)(nil)
