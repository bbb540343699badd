package cache

import "github.com/Akheon23/cuda-gdb/debugapi"

// SM mirrors one streaming multiprocessor.
type SM struct {
	dev, sm uint32
	api     debugapi.API
	owner   *Device

	validWarps  cell[uint64]
	brokenWarps cell[uint64]

	warps []*Warp
}

func newSM(dev, sm, numWarps, numLanes uint32, api debugapi.API, kernels KernelLookup, owner *Device, deferLaunch bool) *SM {
	s := &SM{dev: dev, sm: sm, api: api, owner: owner}
	s.warps = make([]*Warp, numWarps)
	for i := uint32(0); i < numWarps; i++ {
		s.warps[i] = newWarp(dev, sm, i, numLanes, api, kernels, s, deferLaunch)
	}
	return s
}

// IsValid reports whether any warp of this SM is live.
func (s *SM) IsValid() bool {
	mask, err := s.ValidWarpsMask()
	if err != nil {
		return false
	}
	return mask != 0
}

func (s *SM) ValidWarpsMask() (uint64, error) {
	return s.validWarps.get(func() (uint64, error) {
		return s.api.ValidWarps(s.dev, s.sm)
	})
}

func (s *SM) BrokenWarpsMask() (uint64, error) {
	return s.brokenWarps.get(func() (uint64, error) {
		return s.api.BrokenWarps(s.dev, s.sm)
	})
}

func (s *SM) Warp(idx uint32) *Warp { return s.warps[idx] }

// invalidate clears this SM's own mask presence and recursively invalidates
// every warp (and lane) it owns, per "Resume device" in spec.md §4.2.
func (s *SM) invalidate() {
	for _, w := range s.warps {
		w.invalidate()
	}
	s.validWarps.invalidate()
	s.brokenWarps.invalidate()
}

// invalidateMasksOnly clears only this SM's own valid/broken mask presence,
// used by the single-step path which must not blow away the other warps of
// the SM that were not part of the stepped mask.
func (s *SM) invalidateMasksOnly() {
	s.validWarps.invalidate()
	s.brokenWarps.invalidate()
}
