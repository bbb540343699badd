package command

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Akheon23/cuda-gdb/coord"
)

func headerFor(gran coord.Granularity) table.Row {
	switch gran {
	case coord.Devices:
		return table.Row{"Dev", "Description"}
	case coord.SMs:
		return table.Row{"Dev", "SM", "Description"}
	case coord.Warps:
		return table.Row{"Dev", "SM", "Warp", "Kernel", "BlockIdx"}
	case coord.Lanes:
		return table.Row{"Dev", "SM", "Warp", "Lane", "ThreadIdx"}
	case coord.Kernels:
		return table.Row{"Kernel", "Dev", "GridDim", "BlockDim"}
	case coord.Blocks:
		return table.Row{"Kernel", "BlockIdx"}
	case coord.Threads:
		return table.Row{"Kernel", "BlockIdx", "ThreadIdx"}
	default:
		return table.Row{}
	}
}

// rowsFor renders one row per coordinate, unless coalesce is set, in which
// case a maximal run of rows differing only by a contiguous range on the
// trailing selector axis (lane, warp, or sm) is merged into a single "a-b"
// row, and a run of blocks or threads along X into a single
// "from=(x,y,z) to=(x,y,z)" row, per spec.md §7 scenario 4's coalescing example.
func rowsFor(gran coord.Granularity, rows []coord.Coord, coalesce bool) []table.Row {
	if !coalesce {
		out := make([]table.Row, 0, len(rows))
		for _, r := range rows {
			out = append(out, rowFor(gran, r))
		}
		return out
	}
	return coalesceRows(gran, rows)
}

func rowFor(gran coord.Granularity, c coord.Coord) table.Row {
	switch gran {
	case coord.Devices:
		return table.Row{c.Dev.Value, "device"}
	case coord.SMs:
		return table.Row{c.Dev.Value, c.SM.Value, "sm"}
	case coord.Warps:
		return table.Row{c.Dev.Value, c.SM.Value, c.Warp.Value, c.KernelID.Value, c.BlockIdx.String()}
	case coord.Lanes:
		return table.Row{c.Dev.Value, c.SM.Value, c.Warp.Value, c.Lane.Value, c.ThreadIdx.String()}
	case coord.Kernels:
		return table.Row{c.KernelID.Value, c.Dev.Value, "", ""}
	case coord.Blocks:
		return table.Row{c.KernelID.Value, c.BlockIdx.String()}
	case coord.Threads:
		return table.Row{c.KernelID.Value, c.BlockIdx.String(), c.ThreadIdx.String()}
	default:
		return table.Row{}
	}
}

// selectorValue returns the trailing axis value coalescing ranges over, by
// granularity, and a key built from every other column so only rows that
// truly differ by just that one axis are merged. At Blocks/Threads
// granularity the trailing axis is blockIdx.X/threadIdx.X, per spec.md §8's
// worked "info threads" coalescing example (twelve consecutive threads
// sharing kernel/blockIdx/threadIdx.Y/threadIdx.Z collapse into one
// from=.../to=... row).
func selectorValue(gran coord.Granularity, c coord.Coord) (key string, val uint64, ok bool) {
	switch gran {
	case coord.Lanes:
		return fmt.Sprintf("%d/%d/%d", c.Dev.Value, c.SM.Value, c.Warp.Value), c.Lane.Value, true
	case coord.Warps:
		return fmt.Sprintf("%d/%d", c.Dev.Value, c.SM.Value), c.Warp.Value, true
	case coord.SMs:
		return fmt.Sprintf("%d", c.Dev.Value), c.SM.Value, true
	case coord.Blocks:
		return fmt.Sprintf("%d/%d/%d", c.KernelID.Value, c.BlockIdx.Y.Value, c.BlockIdx.Z.Value),
			c.BlockIdx.X.Value, true
	case coord.Threads:
		return fmt.Sprintf("%d/%s/%d/%d", c.KernelID.Value, c.BlockIdx.String(),
			c.ThreadIdx.Y.Value, c.ThreadIdx.Z.Value), c.ThreadIdx.X.Value, true
	default:
		return "", 0, false
	}
}

func coalesceRows(gran coord.Granularity, rows []coord.Coord) []table.Row {
	_, _, coalescable := selectorValue(gran, coord.Coord{})
	if !coalescable || len(rows) == 0 {
		out := make([]table.Row, 0, len(rows))
		for _, r := range rows {
			out = append(out, rowFor(gran, r))
		}
		return out
	}

	var out []table.Row
	i := 0
	for i < len(rows) {
		key, start, _ := selectorValue(gran, rows[i])
		j := i + 1
		last := start
		for j < len(rows) {
			k, v, _ := selectorValue(gran, rows[j])
			if k != key || v != last+1 {
				break
			}
			last = v
			j++
		}
		out = append(out, coalescedRow(gran, rows[i], start, last))
		i = j
	}
	return out
}

func coalescedRow(gran coord.Granularity, c coord.Coord, start, end uint64) table.Row {
	r := rowFor(gran, c)
	if start == end {
		return r
	}
	rangeStr := fmt.Sprintf("%d-%d", start, end)
	switch gran {
	case coord.Lanes:
		r[3] = rangeStr
	case coord.Warps:
		r[2] = rangeStr
	case coord.SMs:
		r[1] = rangeStr
	case coord.Blocks:
		r[1] = dim3Range(c.BlockIdx, start, end)
	case coord.Threads:
		r[2] = dim3Range(c.ThreadIdx, start, end)
	}
	return r
}

// dim3Range renders the spec.md §8 "from=(0,0,0) to=(11,0,0)" form for a
// coalesced run of X values sharing dim3's Y/Z components.
func dim3Range(dim coord.Dim3, start, end uint64) string {
	from := coord.Dim3{X: coord.Lit(start), Y: dim.Y, Z: dim.Z}
	to := coord.Dim3{X: coord.Lit(end), Y: dim.Y, Z: dim.Z}
	return fmt.Sprintf("from=%s to=%s", from, to)
}
