package cache

import (
	"math/bits"

	"github.com/Akheon23/cuda-gdb/debugapi"
)

// KernelLookup resolves a grid id to a live kernel handle. Implemented by
// package registry; declared here (rather than imported) so warp->kernel
// stays a lookup-by-id through the registry and never a stored owning
// reference, per spec.md §9's cyclic-back-reference guidance.
type KernelLookup interface {
	FindByGridID(gridID uint64) (kernelID uint64, ok bool)
	// EnsureByGridID returns gridID's kernel id, registering a placeholder
	// kernel on dev first if none exists yet. Only consulted when
	// deferLaunch is set (command.Options.DeferKernelLaunchNotifications),
	// mirroring the original's device_create_kernel fallback in
	// warp_get_kernel (original_source/gdb/cuda-state.c).
	EnsureByGridID(dev uint32, gridID uint64) uint64
}

// Warp mirrors one hardware-scheduled group of lanes.
type Warp struct {
	dev, sm, warp uint32
	numLanes      uint32
	api           debugapi.API
	kernels       KernelLookup
	owner         *SM
	deferLaunch   bool

	gridID        cell[uint64]
	blockIdx      cell[debugapi.Dim3]
	validLanes    cell[uint64]
	activeLanes   cell[uint64]
	timestamp     cell[int64]

	lanes []*Lane
}

func newWarp(dev, sm, warp, numLanes uint32, api debugapi.API, kernels KernelLookup, owner *SM, deferLaunch bool) *Warp {
	w := &Warp{dev: dev, sm: sm, warp: warp, numLanes: numLanes, api: api, kernels: kernels, owner: owner, deferLaunch: deferLaunch}
	w.lanes = make([]*Lane, numLanes)
	for i := uint32(0); i < numLanes; i++ {
		w.lanes[i] = newLane(dev, sm, warp, i, api, w)
	}
	return w
}

// IsValid reports whether this warp's bit is set in the owning SM's
// valid-warps mask.
func (w *Warp) IsValid() bool {
	mask, err := w.owner.ValidWarpsMask()
	if err != nil {
		return false
	}
	return mask>>w.warp&1 != 0
}

// IsBroken reports whether this warp's bit is set in the owning SM's
// broken-warps mask. Per spec.md §8, is_broken implies is_valid.
func (w *Warp) IsBroken() bool {
	mask, err := w.owner.BrokenWarpsMask()
	if err != nil {
		return false
	}
	return mask>>w.warp&1 != 0
}

// ensureBatch populates the grid-id/block-idx/valid-lanes/active-lanes cells
// from a single round trip when the backend reports RemoteBatched() (spec.md
// §4.2 "Remote batching"), instead of issuing four separate fetches. A no-op
// once every cell it covers is already present, or when the backend prefers
// per-field fetches.
func (w *Warp) ensureBatch() error {
	if !w.api.RemoteBatched() {
		return nil
	}
	if w.gridID.isPresent() && w.blockIdx.isPresent() && w.validLanes.isPresent() && w.activeLanes.isPresent() {
		return nil
	}
	snap, err := w.api.FetchWarpState(w.dev, w.sm, w.warp)
	if err != nil {
		return err
	}
	w.gridID.set(snap.GridID)
	w.blockIdx.set(snap.BlockIdx)
	w.validLanes.set(snap.ValidLanes)
	w.activeLanes.set(snap.ActiveLanes)
	return nil
}

func (w *Warp) GridID() (uint64, error) {
	_ = w.ensureBatch()
	return w.gridID.get(func() (uint64, error) {
		return w.api.GridID(w.dev, w.sm, w.warp)
	})
}

// Kernel resolves this warp's kernel handle by looking its grid id up in the
// process-wide kernel registry every call, never caching a pointer. When no
// kernel is registered yet and deferLaunch is set, a placeholder kernel is
// created on demand rather than reporting not-found (original's
// warp_get_kernel/device_create_kernel fallback).
func (w *Warp) Kernel() (uint64, bool, error) {
	gridID, err := w.GridID()
	if err != nil {
		return 0, false, err
	}
	kernelID, ok := w.kernels.FindByGridID(gridID)
	if !ok && w.deferLaunch {
		return w.kernels.EnsureByGridID(w.dev, gridID), true, nil
	}
	return kernelID, ok, nil
}

func (w *Warp) BlockIdx() (debugapi.Dim3, error) {
	_ = w.ensureBatch()
	return w.blockIdx.get(func() (debugapi.Dim3, error) {
		return w.api.BlockIdx(w.dev, w.sm, w.warp)
	})
}

func (w *Warp) ValidLanesMask() (uint64, error) {
	_ = w.ensureBatch()
	v, err := w.validLanes.get(func() (uint64, error) {
		return w.api.ValidLanes(w.dev, w.sm, w.warp)
	})
	if err == nil && !w.timestamp.isPresent() {
		w.timestamp.set(nowFunc())
	}
	return v, err
}

func (w *Warp) ActiveLanesMask() (uint64, error) {
	_ = w.ensureBatch()
	return w.activeLanes.get(func() (uint64, error) {
		return w.api.ActiveLanes(w.dev, w.sm, w.warp)
	})
}

// DivergentLanesMask implements "divergent = valid & !active" at mask
// granularity.
func (w *Warp) DivergentLanesMask() (uint64, error) {
	valid, err := w.ValidLanesMask()
	if err != nil {
		return 0, err
	}
	active, err := w.ActiveLanesMask()
	if err != nil {
		return 0, err
	}
	return valid &^ active, nil
}

// LowestActiveLane returns the index of the lowest-numbered active lane, or
// ok=false if none are active.
func (w *Warp) LowestActiveLane() (idx uint32, ok bool, err error) {
	active, err := w.ActiveLanesMask()
	if err != nil {
		return 0, false, err
	}
	if active == 0 {
		return 0, false, nil
	}
	return uint32(bits.TrailingZeros64(active)), true, nil
}

// ActivePC returns the shared PC of this warp's active lanes (any one
// suffices, since they share PC by construction).
func (w *Warp) ActivePC() (uint64, error) {
	idx, ok, err := w.LowestActiveLane()
	if err != nil || !ok {
		return 0, err
	}
	return w.lanes[idx].PC()
}

func (w *Warp) ActiveVirtualPC() (uint64, error) {
	idx, ok, err := w.LowestActiveLane()
	if err != nil || !ok {
		return 0, err
	}
	return w.lanes[idx].VirtualPC()
}

func (w *Warp) Timestamp() (int64, error) {
	return w.timestamp.get(func() (int64, error) { return nowFunc(), nil })
}

func (w *Warp) Lane(idx uint32) *Lane { return w.lanes[idx] }

// invalidate clears the presence of every lane's cached fields and of this
// warp's grid id, block index, valid/active lane masks and timestamp. The
// single-step invalidation rule (which warps to clear, and the device-level
// fallback) lives in the caller, Device.SingleStepWarp.
func (w *Warp) invalidate() {
	for _, l := range w.lanes {
		l.invalidate()
	}
	w.gridID.invalidate()
	w.blockIdx.invalidate()
	w.validLanes.invalidate()
	w.activeLanes.invalidate()
	w.timestamp.invalidate()
}
