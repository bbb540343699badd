package coord

// Dim3Shape is a 3-D extent, used as the grid/block dimension when
// incrementing through logical space.
type Dim3Shape struct {
	X, Y, Z uint32
}

func cmpU64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CompareLogical orders two coordinates lexicographically on
// (kernelId, blockIdx.z, .y, .x, threadIdx.z, .y, .x), per spec.md §4.1.
func CompareLogical(a, b Coord) int {
	if c := cmpU64(a.KernelID.Value, b.KernelID.Value); c != 0 {
		return c
	}
	if c := cmpU64(a.BlockIdx.Z.Value, b.BlockIdx.Z.Value); c != 0 {
		return c
	}
	if c := cmpU64(a.BlockIdx.Y.Value, b.BlockIdx.Y.Value); c != 0 {
		return c
	}
	if c := cmpU64(a.BlockIdx.X.Value, b.BlockIdx.X.Value); c != 0 {
		return c
	}
	if c := cmpU64(a.ThreadIdx.Z.Value, b.ThreadIdx.Z.Value); c != 0 {
		return c
	}
	if c := cmpU64(a.ThreadIdx.Y.Value, b.ThreadIdx.Y.Value); c != 0 {
		return c
	}
	return cmpU64(a.ThreadIdx.X.Value, b.ThreadIdx.X.Value)
}

// IncrementBlock advances c.BlockIdx by one in logical-lexicographic order
// (x fastest, then y, then z), wrapping x and y. Overflow past the grid's
// final block clears c.Valid rather than wrapping z, per spec.md §4.1 and
// §8's boundary property.
func IncrementBlock(c *Coord, gridDim Dim3Shape) {
	x, y, z := uint32(c.BlockIdx.X.Value), uint32(c.BlockIdx.Y.Value), uint32(c.BlockIdx.Z.Value)

	x++
	if x >= gridDim.X {
		x = 0
		y++
		if y >= gridDim.Y {
			y = 0
			z++
			if z >= gridDim.Z {
				c.Valid = false
				return
			}
		}
	}

	c.BlockIdx = LitDim3(x, y, z)
	c.Resolve()
}

// IncrementThread advances c.ThreadIdx by one within blockDim, rolling over
// into the next block via IncrementBlock when the thread index wraps.
func IncrementThread(c *Coord, gridDim, blockDim Dim3Shape) {
	x, y, z := uint32(c.ThreadIdx.X.Value), uint32(c.ThreadIdx.Y.Value), uint32(c.ThreadIdx.Z.Value)

	x++
	if x >= blockDim.X {
		x = 0
		y++
		if y >= blockDim.Y {
			y = 0
			z++
			if z >= blockDim.Z {
				z = 0
				c.ThreadIdx = LitDim3(x, y, z)
				IncrementBlock(c, gridDim)
				return
			}
		}
	}

	c.ThreadIdx = LitDim3(x, y, z)
	c.Resolve()
}
