package coord

// MatchKind indexes the four selection kinds FindValid reports.
type MatchKind int

const (
	ExactPhysical MatchKind = iota
	ClosestPhysical
	ExactLogical
	ClosestLogical
)

// Matches is the result of FindValid: one candidate coordinate (zero value,
// Valid==false, if none was found) per MatchKind.
type Matches [4]Coord

// FindValid enumerates live lanes matching request and returns, for each
// selection kind, the best candidate: ties are broken by physical order
// (device,sm,warp,lane ascending) then logical order (CompareLogical).
// request's wildcards on one axis family (e.g. leaving kernel/block/thread
// wildcarded while pinning dev/sm/warp/lane) restrict physical matching only;
// the logical columns are computed independently from request's logical
// components the same way.
func FindValid(request Coord, src Source) Matches {
	var m Matches

	physFilter := Filter()
	physFilter.Dev, physFilter.SM, physFilter.Warp, physFilter.Lane = request.Dev, request.SM, request.Warp, request.Lane

	physCandidates := NewIterator(physFilter, Lanes, Valid, src).items
	if len(physCandidates) > 0 {
		// Fill in the live lane's logical coordinates so a found match is Valid.
		c := &physCandidates[0]
		dev, sm, wp, ln := uint32(c.Dev.Value), uint32(c.SM.Value), uint32(c.Warp.Value), uint32(c.Lane.Value)
		kernelID, okK := src.WarpKernelID(dev, sm, wp)
		gridID, okG := src.WarpGridID(dev, sm, wp)
		block, okB := src.WarpBlockIdx(dev, sm, wp)
		thread, okT := src.LaneThreadIdx(dev, sm, wp, ln)
		if okK && okG && okB && okT {
			c.KernelID, c.GridID = Lit(kernelID), Lit(gridID)
			c.BlockIdx, c.ThreadIdx = LitDim3(block.X, block.Y, block.Z), LitDim3(thread.X, thread.Y, thread.Z)
			c.Resolve()
		}
		m[ClosestPhysical] = physCandidates[0]
		if request.Physical() && coordPhysicallyEqual(request, physCandidates[0]) {
			m[ExactPhysical] = physCandidates[0]
		}
	}

	logFilter := Filter()
	logFilter.KernelID, logFilter.GridID = request.KernelID, request.GridID
	logFilter.BlockIdx, logFilter.ThreadIdx = request.BlockIdx, request.ThreadIdx

	logCandidates := NewIterator(logFilter, Threads, Valid, src).items
	if len(logCandidates) > 0 {
		m[ClosestLogical] = logCandidates[0]
		if request.Logical() && coordLogicallyEqual(request, logCandidates[0]) {
			m[ExactLogical] = logCandidates[0]
		}
	}

	return m
}

func coordPhysicallyEqual(a, b Coord) bool {
	return a.Dev.Value == b.Dev.Value && a.SM.Value == b.SM.Value &&
		a.Warp.Value == b.Warp.Value && a.Lane.Value == b.Lane.Value
}

func coordLogicallyEqual(a, b Coord) bool {
	return a.KernelID.Value == b.KernelID.Value &&
		a.BlockIdx.X.Value == b.BlockIdx.X.Value && a.BlockIdx.Y.Value == b.BlockIdx.Y.Value && a.BlockIdx.Z.Value == b.BlockIdx.Z.Value &&
		a.ThreadIdx.X.Value == b.ThreadIdx.X.Value && a.ThreadIdx.Y.Value == b.ThreadIdx.Y.Value && a.ThreadIdx.Z.Value == b.ThreadIdx.Z.Value
}
