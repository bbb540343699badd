package coord

// Granularity selects what an Iterator enumerates.
type Granularity uint8

const (
	Devices Granularity = iota
	SMs
	Warps
	Lanes
	Kernels
	Blocks
	Threads
)

// SelectPolicy controls which cached masks the iterator consults while
// pruning the Cartesian product of a filter's wildcards.
type SelectPolicy uint8

const (
	// All visits every concrete coordinate regardless of live state.
	All SelectPolicy = iota
	// Valid skips coordinates the cache reports as not live.
	Valid
	// Broken restricts to warps/lanes the cache reports as broken.
	Broken
)

// Source is the read-only view of live device state the iterator prunes
// against. It is implemented by package cache; declaring the interface here
// (rather than importing cache) keeps the coordinate algebra free of any
// dependency on the cache's invalidation machinery.
type Source interface {
	NumDevices() uint32
	NumSMs(dev uint32) uint32
	NumWarps(dev uint32) uint32
	NumLanes(dev uint32) uint32

	ValidWarpsMask(dev, sm uint32) uint64
	BrokenWarpsMask(dev, sm uint32) uint64
	ValidLanesMask(dev, sm, warp uint32) uint64
	ActiveLanesMask(dev, sm, warp uint32) uint64

	WarpKernelID(dev, sm, warp uint32) (uint64, bool)
	WarpGridID(dev, sm, warp uint32) (uint64, bool)
	WarpBlockIdx(dev, sm, warp uint32) (Dim3Shape, bool)
	LaneThreadIdx(dev, sm, warp, lane uint32) (Dim3Shape, bool)

	// LiveKernelIDs returns the id of every registered kernel that has not
	// terminated, in registration order; KernelGridDim/KernelBlockDim give
	// their dims.
	LiveKernelIDs() []uint64
	KernelGridDim(kernelID uint64) (Dim3Shape, bool)
	KernelBlockDim(kernelID uint64) (Dim3Shape, bool)
	KernelDeviceID(kernelID uint64) (uint32, bool)
}

// Iterator lazily enumerates coordinates matching a filter at a chosen
// granularity under a selection policy. It is restartable: Start rewinds to
// the beginning of the same filter, re-consulting live state.
type Iterator struct {
	filter Coord
	gran   Granularity
	policy SelectPolicy
	src    Source

	items []Coord
	pos   int
}

// NewIterator builds an iterator over filter at granularity gran, pruned per
// policy. Enumeration is computed once at construction/Start time: lazy in
// the sense of spec.md §4.1 refers to deferring the device-state fetch to
// cache reads (satisfied because Source's mask getters are backed by the
// lazy cache), not to deferring enumeration itself.
func NewIterator(filter Coord, gran Granularity, policy SelectPolicy, src Source) *Iterator {
	it := &Iterator{filter: filter, gran: gran, policy: policy, src: src}
	it.Start()
	return it
}

// Start (re)computes the enumeration from the current live state.
func (it *Iterator) Start() {
	it.items = it.enumerate()
	it.pos = 0
}

// End reports whether enumeration is exhausted.
func (it *Iterator) End() bool { return it.pos >= len(it.items) }

// Next advances to the following match.
func (it *Iterator) Next() { it.pos++ }

// Current returns the coordinate at the current position.
func (it *Iterator) Current() Coord { return it.items[it.pos] }

// Size returns the total number of matches.
func (it *Iterator) Size() int { return len(it.items) }

func axisMatches(filterAxis Axis, v uint64) bool {
	return filterAxis.Kind == Wildcard || filterAxis.Value == v
}

func dim3Matches(filterDim Dim3, v Dim3Shape) bool {
	return axisMatches(filterDim.X, uint64(v.X)) &&
		axisMatches(filterDim.Y, uint64(v.Y)) &&
		axisMatches(filterDim.Z, uint64(v.Z))
}

func (it *Iterator) enumerate() []Coord {
	switch it.gran {
	case Devices:
		return it.enumeratePhysical(false, false, false)
	case SMs:
		return it.enumeratePhysical(true, false, false)
	case Warps:
		return it.enumeratePhysical(true, true, false)
	case Lanes:
		return it.enumeratePhysical(true, true, true)
	case Kernels:
		return it.enumerateKernels()
	case Blocks:
		return it.enumerateLogical(false)
	case Threads:
		return it.enumerateLogical(true)
	default:
		return nil
	}
}

// enumeratePhysical walks devices ascending, then (optionally) SMs, warps,
// lanes ascending, pruning warps/lanes against the cache's live masks unless
// policy is All.
func (it *Iterator) enumeratePhysical(withSM, withWarp, withLane bool) []Coord {
	var out []Coord
	f := it.filter

	for dev := uint32(0); dev < it.src.NumDevices(); dev++ {
		if !axisMatches(f.Dev, uint64(dev)) {
			continue
		}
		if !withSM {
			out = append(out, physicalCoord(dev, 0, 0, 0, false, false, false))
			continue
		}

		for sm := uint32(0); sm < it.src.NumSMs(dev); sm++ {
			if !axisMatches(f.SM, uint64(sm)) {
				continue
			}
			if !withWarp {
				out = append(out, physicalCoord(dev, sm, 0, 0, true, false, false))
				continue
			}

			validWarps := it.src.ValidWarpsMask(dev, sm)
			brokenWarps := it.src.BrokenWarpsMask(dev, sm)
			for wp := uint32(0); wp < it.src.NumWarps(dev); wp++ {
				if !axisMatches(f.Warp, uint64(wp)) {
					continue
				}
				if it.policy == Valid && validWarps>>wp&1 == 0 {
					continue
				}
				if it.policy == Broken && brokenWarps>>wp&1 == 0 {
					continue
				}
				if kernelID, ok := it.src.WarpKernelID(dev, sm, wp); ok && !axisMatches(f.KernelID, kernelID) {
					continue
				}
				if gridID, ok := it.src.WarpGridID(dev, sm, wp); ok && !axisMatches(f.GridID, gridID) {
					continue
				}
				if blockIdx, ok := it.src.WarpBlockIdx(dev, sm, wp); ok && !dim3Matches(f.BlockIdx, blockIdx) {
					continue
				}

				if !withLane {
					out = append(out, physicalCoord(dev, sm, wp, 0, true, true, false))
					continue
				}

				validLanes := it.src.ValidLanesMask(dev, sm, wp)
				activeLanes := it.src.ActiveLanesMask(dev, sm, wp)
				for ln := uint32(0); ln < it.src.NumLanes(dev); ln++ {
					if !axisMatches(f.Lane, uint64(ln)) {
						continue
					}
					if it.policy == Valid && validLanes>>ln&1 == 0 {
						continue
					}
					if it.policy == Broken && (validLanes>>ln&1 == 0 || activeLanes>>ln&1 != 0) {
						// Broken lane selection follows warp brokenness;
						// divergent (valid & !active) lanes of a broken
						// warp are still enumerated, so only exclude
						// outright invalid lanes here.
						if validLanes>>ln&1 == 0 {
							continue
						}
					}
					if threadIdx, ok := it.src.LaneThreadIdx(dev, sm, wp, ln); ok && !dim3Matches(f.ThreadIdx, threadIdx) {
						continue
					}

					out = append(out, physicalCoord(dev, sm, wp, ln, true, true, true))
				}
			}
		}
	}
	return out
}

func physicalCoord(dev, sm, wp, ln uint32, hasSM, hasWarp, hasLane bool) Coord {
	c := Coord{
		Dev:      Lit(uint64(dev)),
		KernelID: Wild(), GridID: Wild(),
		BlockIdx: WildDim3(), ThreadIdx: WildDim3(),
	}
	if hasSM {
		c.SM = Lit(uint64(sm))
	} else {
		c.SM = Wild()
	}
	if hasWarp {
		c.Warp = Lit(uint64(wp))
	} else {
		c.Warp = Wild()
	}
	if hasLane {
		c.Lane = Lit(uint64(ln))
	} else {
		c.Lane = Wild()
	}
	c.Resolve()
	return c
}

func (it *Iterator) enumerateKernels() []Coord {
	var out []Coord
	for _, id := range it.src.LiveKernelIDs() {
		if !axisMatches(it.filter.KernelID, id) {
			continue
		}
		dev, ok := it.src.KernelDeviceID(id)
		if !ok || !axisMatches(it.filter.Dev, uint64(dev)) {
			continue
		}
		c := Coord{
			Dev: Lit(uint64(dev)), SM: Wild(), Warp: Wild(), Lane: Wild(),
			KernelID: Lit(id), GridID: Wild(),
			BlockIdx: WildDim3(), ThreadIdx: WildDim3(),
		}
		c.Resolve()
		out = append(out, c)
	}
	return out
}

// enumerateLogical walks every live lane, grouped by kernel, in
// logical-lexicographic order; at Blocks granularity one entry is emitted
// per distinct block rather than per thread.
func (it *Iterator) enumerateLogical(perThread bool) []Coord {
	physical := it.enumeratePhysical(true, true, true)

	byBlock := map[[4]uint64]Coord{}
	var out []Coord
	for _, p := range physical {
		dev, sm, wp, ln := uint32(p.Dev.Value), uint32(p.SM.Value), uint32(p.Warp.Value), uint32(p.Lane.Value)
		kernelID, ok := it.src.WarpKernelID(dev, sm, wp)
		if !ok || !axisMatches(it.filter.KernelID, kernelID) {
			continue
		}
		gridID, _ := it.src.WarpGridID(dev, sm, wp)
		if !axisMatches(it.filter.GridID, gridID) {
			continue
		}
		blockIdx, ok := it.src.WarpBlockIdx(dev, sm, wp)
		if !ok || !dim3Matches(it.filter.BlockIdx, blockIdx) {
			continue
		}

		if !perThread {
			key := [4]uint64{kernelID, uint64(blockIdx.X), uint64(blockIdx.Y), uint64(blockIdx.Z)}
			if _, seen := byBlock[key]; seen {
				continue
			}
			c := Coord{
				Dev: Lit(uint64(dev)), SM: Lit(uint64(sm)), Warp: Lit(uint64(wp)), Lane: Wild(),
				KernelID: Lit(kernelID), GridID: Lit(gridID),
				BlockIdx: LitDim3(blockIdx.X, blockIdx.Y, blockIdx.Z), ThreadIdx: WildDim3(),
			}
			c.Resolve()
			byBlock[key] = c
			out = append(out, c)
			continue
		}

		threadIdx, ok := it.src.LaneThreadIdx(dev, sm, wp, ln)
		if !ok || !dim3Matches(it.filter.ThreadIdx, threadIdx) {
			continue
		}
		c := Coord{
			Dev: Lit(uint64(dev)), SM: Lit(uint64(sm)), Warp: Lit(uint64(wp)), Lane: Lit(uint64(ln)),
			KernelID: Lit(kernelID), GridID: Lit(gridID),
			BlockIdx:  LitDim3(blockIdx.X, blockIdx.Y, blockIdx.Z),
			ThreadIdx: LitDim3(threadIdx.X, threadIdx.Y, threadIdx.Z),
		}
		c.Resolve()
		out = append(out, c)
	}

	sortByLogicalOrder(out)
	return out
}

func sortByLogicalOrder(cs []Coord) {
	// Insertion sort: enumeration sizes here are bounded by live lane/block
	// counts (thousands at most), and CompareLogical is cheap.
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && CompareLogical(cs[j-1], cs[j]) > 0; j-- {
			cs[j-1], cs[j] = cs[j], cs[j-1]
		}
	}
}
