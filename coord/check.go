package coord

// CheckFullyDefined fails with ErrIncomplete when a required axis still
// holds Wildcard. logicalRequired demands kernelId/blockIdx/threadIdx be
// concrete, physicalRequired demands dev/sm/warp/lane be concrete, and
// anyRequired demands that at least one of the two axis families (all of
// kernelId/blockIdx/threadIdx, or all of dev/sm/warp/lane) be concrete.
func CheckFullyDefined(c Coord, logicalRequired, physicalRequired, anyRequired bool) error {
	isWild := func(a Axis) bool { return a.Kind == Wildcard }

	if logicalRequired {
		if isWild(c.KernelID) || isWild(c.BlockIdx.X) || isWild(c.BlockIdx.Y) || isWild(c.BlockIdx.Z) ||
			isWild(c.ThreadIdx.X) || isWild(c.ThreadIdx.Y) || isWild(c.ThreadIdx.Z) {
			return ErrIncomplete
		}
	}

	if physicalRequired {
		if isWild(c.Dev) || isWild(c.SM) || isWild(c.Warp) || isWild(c.Lane) {
			return ErrIncomplete
		}
	}

	if anyRequired && !logicalRequired && !physicalRequired {
		if c.Logical() || c.Physical() {
			return nil
		}
		return ErrIncomplete
	}

	return nil
}
