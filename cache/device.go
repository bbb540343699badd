package cache

import (
	"log/slog"

	"github.com/Akheon23/cuda-gdb/debugapi"
)

// KernelInvalidator clears the derived cached info of every kernel owned by
// a device, invoked by Device.invalidateAll on resume (spec.md §4.2
// "Resume device: ... invalidate every kernel of d").
type KernelInvalidator interface {
	KernelLookup
	InvalidateDevice(dev uint32)
}

// Device mirrors one accelerator instance: its fixed shape, its SMs, and the
// per-stop exception-filtering state.
type Device struct {
	dev         uint32
	api         debugapi.API
	kernels     KernelInvalidator
	logger      *slog.Logger
	deferLaunch bool

	numSMs, numWarps, numLanes, numRegisters cell[uint32]
	devType, smType                          cell[string]
	validC                                   cell[bool]

	filterExceptionStatePopulated bool

	sms []*SM
}

// NewDevice builds the cache for one device; shape fields are fetched
// lazily on first use like everything else. deferLaunch threads
// command.Options.DeferKernelLaunchNotifications down to every warp it owns.
func NewDevice(dev uint32, api debugapi.API, kernels KernelInvalidator, logger *slog.Logger, deferLaunch bool) *Device {
	return &Device{dev: dev, api: api, kernels: kernels, logger: logger, deferLaunch: deferLaunch}
}

func (d *Device) ensureSMs() error {
	if d.sms != nil {
		return nil
	}
	numSMs, err := d.NumSMs()
	if err != nil {
		return err
	}
	numWarps, err := d.NumWarps()
	if err != nil {
		return err
	}
	numLanes, err := d.NumLanes()
	if err != nil {
		return err
	}
	d.sms = make([]*SM, numSMs)
	for i := uint32(0); i < numSMs; i++ {
		d.sms[i] = newSM(d.dev, i, numWarps, numLanes, d.api, d.kernels, d, d.deferLaunch)
	}
	return nil
}

func (d *Device) NumSMs() (uint32, error) {
	return d.numSMs.get(func() (uint32, error) { return d.api.NumSMs(d.dev) })
}

func (d *Device) NumWarps() (uint32, error) {
	return d.numWarps.get(func() (uint32, error) { return d.api.NumWarps(d.dev) })
}

func (d *Device) NumLanes() (uint32, error) {
	return d.numLanes.get(func() (uint32, error) { return d.api.NumLanes(d.dev) })
}

func (d *Device) NumRegisters() (uint32, error) {
	return d.numRegisters.get(func() (uint32, error) { return d.api.NumRegisters(d.dev) })
}

func (d *Device) DeviceType() (string, error) {
	return d.devType.get(func() (string, error) { return d.api.DeviceType(d.dev) })
}

func (d *Device) SMType() (string, error) {
	return d.smType.get(func() (string, error) { return d.api.SMType(d.dev) })
}

// IsValid returns whether any SM of this device has a live warp. Always
// safe to call, including on a not-yet-initialized device, per spec.md
// §4.2's failure semantics ("is_valid is always safe to call and returns
// false for not-yet-initialized devices").
func (d *Device) IsValid() bool {
	if err := d.ensureSMs(); err != nil {
		return false
	}
	for _, sm := range d.sms {
		if sm.IsValid() {
			return true
		}
	}
	return false
}

// ActiveSMsMask returns a bitmask of SMs that currently have at least one
// live warp.
func (d *Device) ActiveSMsMask() (uint64, error) {
	if err := d.ensureSMs(); err != nil {
		return 0, err
	}
	var mask uint64
	for i, sm := range d.sms {
		if sm.IsValid() {
			mask |= 1 << uint(i)
		}
	}
	return mask, nil
}

func (d *Device) SM(idx uint32) (*SM, error) {
	if err := d.ensureSMs(); err != nil {
		return nil, err
	}
	return d.sms[idx], nil
}

func (d *Device) NumSMsCached() int {
	if d.sms == nil {
		return 0
	}
	return len(d.sms)
}

// Resume implements spec.md §4.2's exact "Resume device" invalidation rule:
// clear every lane/warp/SM presence bit of this device, clear device
// valid_p and filter_exception_state_p, and invalidate every kernel of d.
func (d *Device) Resume() error {
	if err := d.api.ResumeDevice(d.dev); err != nil {
		return err
	}
	d.invalidateAll()
	return nil
}

func (d *Device) invalidateAll() {
	for _, sm := range d.sms {
		sm.invalidate()
	}
	d.validC.invalidate()
	d.filterExceptionStatePopulated = false
	d.kernels.InvalidateDevice(d.dev)
}

// Invalidate exposes invalidateAll directly, for callers (e.g. the event
// processor on KERNEL_FINISHED, ATTACH_COMPLETE and DETACH_COMPLETE) that
// already know the device must be
// re-mirrored from scratch without issuing a resume call themselves.
func (d *Device) Invalidate() { d.invalidateAll() }

func (d *Device) Suspend() error {
	return d.api.SuspendDevice(d.dev)
}

// SingleStepWarp steps warp w on sm s and applies spec.md §4.2's exact
// invalidation rule: clear the cache entry of every warp the debug API
// reports as actually stepped, then clear the SM's valid/broken mask
// presence. If a warp outside w was stepped, or software preemption is
// enabled, fall back to full device invalidation.
func (d *Device) SingleStepWarp(s, w uint32) error {
	sm, err := d.SM(s)
	if err != nil {
		return err
	}

	steppedMask, err := d.api.SingleStepWarp(d.dev, s, w)
	if err != nil {
		return err
	}

	if d.api.SoftwarePreemptionEnabled() {
		d.invalidateAll()
		return nil
	}

	steppedOutsideW := steppedMask &^ (1 << w)
	if steppedOutsideW != 0 {
		if d.logger != nil {
			d.logger.Warn("single-step stepped warps beyond the requested one; falling back to full device invalidation",
				"device", d.dev, "sm", s, "requested_warp", w, "stepped_mask", steppedMask)
		}
		d.invalidateAll()
		return nil
	}

	for i := uint32(0); i < uint32(len(sm.warps)); i++ {
		if steppedMask>>i&1 != 0 {
			sm.warps[i].invalidate()
		}
	}
	sm.invalidateMasksOnly()
	return nil
}

// FilterExceptionState implements the once-per-stop exception filtering
// pass of spec.md §4.2: for every SM *not* in the device's exception-SM
// mask, stamp every lane's exception to NONE with presence set, avoiding
// per-lane exception reads for the common (no exception) case.
func (d *Device) FilterExceptionState() error {
	if d.filterExceptionStatePopulated {
		return nil
	}
	if err := d.ensureSMs(); err != nil {
		return err
	}

	exceptionSMs, err := d.api.DeviceExceptionState(d.dev)
	if err != nil {
		return err
	}

	for i, sm := range d.sms {
		if exceptionSMs>>uint(i)&1 != 0 {
			continue
		}
		for _, w := range sm.warps {
			for _, l := range w.lanes {
				l.setExceptionNone()
			}
		}
	}

	d.filterExceptionStatePopulated = true
	return nil
}
