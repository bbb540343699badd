package command

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Akheon23/cuda-gdb/coord"
)

// granularityAliases implements spec.md §5's "closed dispatch table with
// per-axis aliases": the words a user may type for "info <granularity>" and
// "cuda <granularity> <filter>".
var granularityAliases = map[string]coord.Granularity{
	"device": coord.Devices, "devices": coord.Devices,
	"sm": coord.SMs, "sms": coord.SMs,
	"warp": coord.Warps, "warps": coord.Warps,
	"lane": coord.Lanes, "lanes": coord.Lanes,
	"kernel": coord.Kernels, "kernels": coord.Kernels,
	"block": coord.Blocks, "blocks": coord.Blocks,
	"thread": coord.Threads, "threads": coord.Threads,
}

// Granularity resolves a user-typed alias to its coord.Granularity, failing
// with ErrParse for anything outside the closed set.
func Granularity(alias string) (coord.Granularity, error) {
	g, ok := granularityAliases[strings.ToLower(strings.TrimSpace(alias))]
	if !ok {
		return 0, New(ErrParse, fmt.Sprintf("unknown granularity %q", alias))
	}
	return g, nil
}

// Dispatcher is the process-wide command surface: it owns no state of its
// own beyond what it's given, composing coord.Focus, a coord.Source (the
// cache), and Options into the three verb families spec.md §5 defines.
type Dispatcher struct {
	src   coord.Source
	focus *coord.Focus
	opts  Options
}

func NewDispatcher(src coord.Source, focus *coord.Focus, opts Options) *Dispatcher {
	return &Dispatcher{src: src, focus: focus, opts: opts}
}

// Switch implements "cuda <granularity> <coordinate>": parse in Switch mode,
// resolve Current components against the focus (they stay Current when no
// focus is set), require the result to be fully defined on the
// relevant axis family, find (or fail to find) a live match, and install it
// as the new focus.
func (d *Dispatcher) Switch(gran coord.Granularity, text string) (coord.Coord, error) {
	parsed, err := coord.Parse(text, coord.ModeSwitch)
	if err != nil {
		return coord.Coord{}, Wrap(ErrParse, err)
	}

	resolved, err := coord.EvaluateCurrent(parsed, d.focus, false)
	if err != nil {
		return coord.Coord{}, Wrap(ErrNoCurrentFocus, err)
	}

	logicalRequired := gran == coord.Kernels || gran == coord.Blocks || gran == coord.Threads
	physicalRequired := !logicalRequired
	if err := coord.CheckFullyDefined(resolved, logicalRequired, physicalRequired, false); err != nil {
		return coord.Coord{}, Wrap(ErrIncomplete, err)
	}

	matches := coord.FindValid(resolved, d.src)
	exact := matches[coord.ExactPhysical]
	if logicalRequired {
		exact = matches[coord.ExactLogical]
	}
	if !exact.Valid {
		closest := matches[coord.ClosestPhysical]
		if logicalRequired {
			closest = matches[coord.ClosestLogical]
		}
		if !closest.Valid {
			return coord.Coord{}, New(ErrNotFound, "no live coordinate matches "+text)
		}
		return coord.Coord{}, &Error{Kind: ErrRequestUnsatisfiable, Msg: "closest live match: " + closest.String()}
	}

	d.focus.Set(exact)
	return exact, nil
}

// Query implements "cuda <granularity>" with no coordinate: it returns the
// whole current focus, or fails with ErrNoCurrentFocus when none is set.
func (d *Dispatcher) Query() (coord.Coord, error) {
	focus, ok := d.focus.Get()
	if !ok {
		return coord.Coord{}, New(ErrNoCurrentFocus, "no current focus")
	}
	return focus, nil
}

// Info implements "info <granularity> <filter>": parse in Filter mode,
// enumerate, and render as a table. If opts.CoalesceInfoOutput is set,
// consecutive rows identical except for a single contiguous range axis are
// merged into one row ("a-b" for sm/warp/lane, "from=... to=..." for
// blocks/threads), per spec.md §7 scenario 4.
func (d *Dispatcher) Info(gran coord.Granularity, filterText string) (string, error) {
	filter, err := coord.Parse(filterText, coord.ModeFilter)
	if err != nil {
		return "", Wrap(ErrParse, err)
	}
	resolved, err := coord.EvaluateCurrent(filter, d.focus, false)
	if err != nil {
		return "", Wrap(ErrInternal, err)
	}

	it := coord.NewIterator(resolved, gran, coord.Valid, d.src)
	rows := make([]coord.Coord, 0, it.Size())
	for ; !it.End(); it.Next() {
		rows = append(rows, it.Current())
	}

	t := table.NewWriter()
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(headerFor(gran))
	for _, r := range rowsFor(gran, rows, d.opts.CoalesceInfoOutput) {
		t.AppendRow(r)
	}
	return t.Render(), nil
}
