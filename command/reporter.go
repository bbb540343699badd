package command

import "github.com/Akheon23/cuda-gdb/coord"

// Reporter is the upward surface the core exposes to its host debugger
// front end (spec.md §6): one method per info/switch/query verb, matching
// the CUDA-GDB command grammar's per-axis aliases.
type Reporter interface {
	InfoDevices(filter string) (string, error)
	InfoSMs(filter string) (string, error)
	InfoWarps(filter string) (string, error)
	InfoLanes(filter string) (string, error)
	InfoKernels(filter string) (string, error)
	InfoBlocks(filter string) (string, error)
	InfoThreads(filter string) (string, error)

	Switch(gran coord.Granularity, text string) (coord.Coord, error)
	Query() (coord.Coord, error)
}

func (d *Dispatcher) InfoDevices(filter string) (string, error) { return d.Info(coord.Devices, filter) }
func (d *Dispatcher) InfoSMs(filter string) (string, error)     { return d.Info(coord.SMs, filter) }
func (d *Dispatcher) InfoWarps(filter string) (string, error)   { return d.Info(coord.Warps, filter) }
func (d *Dispatcher) InfoLanes(filter string) (string, error)   { return d.Info(coord.Lanes, filter) }
func (d *Dispatcher) InfoKernels(filter string) (string, error) { return d.Info(coord.Kernels, filter) }
func (d *Dispatcher) InfoBlocks(filter string) (string, error)  { return d.Info(coord.Blocks, filter) }
func (d *Dispatcher) InfoThreads(filter string) (string, error) { return d.Info(coord.Threads, filter) }

var _ Reporter = (*Dispatcher)(nil)
