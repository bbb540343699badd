package cache

import (
	"time"

	"github.com/Akheon23/cuda-gdb/debugapi"
)

// Lane mirrors one SIMD slot of a warp. Validity/activity are not stored
// here: they are bits of the owning Warp's valid/active lane masks, per
// spec.md §3 ("Each device owns ... per lane: PC, virtual PC, thread index,
// exception kind, timestamp" — the masks live one level up).
type Lane struct {
	dev, sm, warp, lane uint32
	api                 debugapi.API
	owner               *Warp

	pc        cell[uint64]
	virtualPC cell[uint64]
	threadIdx cell[debugapi.Dim3]
	exception cell[debugapi.Exception]
	timestamp cell[int64]

	callDepth        cell[int32]
	syscallCallDepth cell[int32]
	memcheckAddr     cell[uint64]
	virtualReturn    map[int32]*cell[uint64]

	registers map[uint32]*cell[uint32]
}

func newLane(dev, sm, warp, lane uint32, api debugapi.API, owner *Warp) *Lane {
	return &Lane{
		dev: dev, sm: sm, warp: warp, lane: lane, api: api, owner: owner,
		virtualReturn: map[int32]*cell[uint64]{},
		registers:     map[uint32]*cell[uint32]{},
	}
}

// IsValid reports whether the owning warp's valid-lanes mask has this lane
// set. Per the open question in spec.md §9, this also stamps timestamp as
// a side effect, reproducing the original's (possibly accidental, treated
// here as intentional) eager per-lane timestamp read on validity queries.
func (l *Lane) IsValid() bool {
	mask, err := l.owner.ValidLanesMask()
	if err != nil {
		return false
	}
	valid := mask>>l.lane&1 != 0
	if valid {
		_, _ = l.Timestamp()
	}
	return valid
}

// IsActive reports whether the owning warp's active-lanes mask has this
// lane set.
func (l *Lane) IsActive() bool {
	mask, err := l.owner.ActiveLanesMask()
	if err != nil {
		return false
	}
	return mask>>l.lane&1 != 0
}

// IsDivergent implements "divergent = valid & !active" (spec.md §3).
func (l *Lane) IsDivergent() bool {
	return l.IsValid() && !l.IsActive()
}

func (l *Lane) ThreadIdx() (debugapi.Dim3, error) {
	return l.threadIdx.get(func() (debugapi.Dim3, error) {
		return l.api.ThreadIdx(l.dev, l.sm, l.warp, l.lane)
	})
}

// PC fetches this lane's PC, sharing the result with every other active
// lane of the same warp (spec.md §4.2 "active-lane PC sharing": correct
// because active lanes of one warp share PC by the execution model).
func (l *Lane) PC() (uint64, error) {
	return l.fetchSharedPC(&l.pc, func() (uint64, error) {
		return l.api.PC(l.dev, l.sm, l.warp, l.lane)
	}, func(ln *Lane) *cell[uint64] { return &ln.pc })
}

func (l *Lane) VirtualPC() (uint64, error) {
	return l.fetchSharedPC(&l.virtualPC, func() (uint64, error) {
		return l.api.VirtualPC(l.dev, l.sm, l.warp, l.lane)
	}, func(ln *Lane) *cell[uint64] { return &ln.virtualPC })
}

func (l *Lane) fetchSharedPC(c *cell[uint64], fetch func() (uint64, error), pick func(*Lane) *cell[uint64]) (uint64, error) {
	if c.present {
		return c.value, nil
	}
	v, err := fetch()
	if err != nil {
		return 0, err
	}
	c.set(v)

	if l.IsActive() {
		mask, _ := l.owner.ActiveLanesMask()
		for other := uint32(0); other < l.owner.numLanes; other++ {
			if other == l.lane || mask>>other&1 == 0 {
				continue
			}
			pick(l.owner.lanes[other]).set(v)
		}
	}
	return v, nil
}

func (l *Lane) Exception() (debugapi.Exception, error) {
	return l.exception.get(func() (debugapi.Exception, error) {
		return l.api.LaneException(l.dev, l.sm, l.warp, l.lane)
	})
}

// setExceptionNone stamps exception=NONE with presence set, used by the
// once-per-stop exception filtering pass (spec.md §4.2).
func (l *Lane) setExceptionNone() {
	l.exception.set(debugapi.ExceptionNone)
}

func (l *Lane) Register(n uint32) (uint32, error) {
	c, ok := l.registers[n]
	if !ok {
		c = &cell[uint32]{}
		l.registers[n] = c
	}
	return c.get(func() (uint32, error) {
		return l.api.Register(l.dev, l.sm, l.warp, l.lane, n)
	})
}

func (l *Lane) CallDepth() (int32, error) {
	return l.callDepth.get(func() (int32, error) {
		return l.api.CallDepth(l.dev, l.sm, l.warp, l.lane)
	})
}

func (l *Lane) SyscallCallDepth() (int32, error) {
	return l.syscallCallDepth.get(func() (int32, error) {
		return l.api.SyscallCallDepth(l.dev, l.sm, l.warp, l.lane)
	})
}

func (l *Lane) VirtualReturnAddress(level int32) (uint64, error) {
	c, ok := l.virtualReturn[level]
	if !ok {
		c = &cell[uint64]{}
		l.virtualReturn[level] = c
	}
	return c.get(func() (uint64, error) {
		return l.api.VirtualReturnAddress(l.dev, l.sm, l.warp, l.lane, level)
	})
}

func (l *Lane) MemcheckErrorAddress() (uint64, error) {
	return l.memcheckAddr.get(func() (uint64, error) {
		return l.api.MemcheckErrorAddress(l.dev, l.sm, l.warp, l.lane)
	})
}

func (l *Lane) Timestamp() (int64, error) {
	return l.timestamp.get(func() (int64, error) {
		return nowFunc(), nil
	})
}

// invalidate clears every presence bit this lane owns, per "Warp cache
// entry ... Dies: same as owning warp" (spec.md §3 lifecycle table).
func (l *Lane) invalidate() {
	l.pc.invalidate()
	l.virtualPC.invalidate()
	l.threadIdx.invalidate()
	l.exception.invalidate()
	l.timestamp.invalidate()
	l.callDepth.invalidate()
	l.syscallCallDepth.invalidate()
	l.memcheckAddr.invalidate()
	for _, c := range l.virtualReturn {
		c.invalidate()
	}
	for _, c := range l.registers {
		c.invalidate()
	}
}

// nowFunc is a seam for tests; production code stamps wall-clock time.
var nowFunc = func() int64 { return time.Now().UnixNano() }
