package coord

// Focus holds the process-wide current-focus coordinate (spec.md §3,
// "Ownership": "guarded by the host debugger's single-threaded command
// loop"). It is a plain value, not a singleton global, so callers decide its
// lifetime (see package session for the one long-lived instance).
type Focus struct {
	set    bool
	coord  Coord
}

// Set installs c as the new focus. c must already be Valid.
func (f *Focus) Set(c Coord) {
	f.coord = c
	f.set = true
}

// Clear removes the current focus, e.g. on context destroy of the context
// owning it.
func (f *Focus) Clear() {
	f.set = false
	f.coord = Coord{}
}

// IsSet reports whether a focus has been established.
func (f *Focus) IsSet() bool { return f.set }

// Get returns the current focus and whether one is set.
func (f *Focus) Get() (Coord, bool) { return f.coord, f.set }

// EvaluateCurrent replaces every Current component of c with the matching
// component read from f. If strict and no focus is set, it fails with
// ErrNoCurrentFocus.
func EvaluateCurrent(c Coord, f *Focus, strict bool) (Coord, error) {
	needsFocus := c.Dev.Kind == Current || c.SM.Kind == Current || c.Warp.Kind == Current ||
		c.Lane.Kind == Current || c.KernelID.Kind == Current || c.GridID.Kind == Current ||
		c.BlockIdx.X.Kind == Current || c.BlockIdx.Y.Kind == Current || c.BlockIdx.Z.Kind == Current ||
		c.ThreadIdx.X.Kind == Current || c.ThreadIdx.Y.Kind == Current || c.ThreadIdx.Z.Kind == Current

	if !needsFocus {
		return c, nil
	}

	focus, ok := f.Get()
	if !ok {
		if strict {
			return c, ErrNoCurrentFocus
		}
		return c, nil
	}

	resolve := func(a, focusA Axis) Axis {
		if a.Kind == Current {
			return focusA
		}
		return a
	}
	out := c
	out.Dev = resolve(c.Dev, focus.Dev)
	out.SM = resolve(c.SM, focus.SM)
	out.Warp = resolve(c.Warp, focus.Warp)
	out.Lane = resolve(c.Lane, focus.Lane)
	out.KernelID = resolve(c.KernelID, focus.KernelID)
	out.GridID = resolve(c.GridID, focus.GridID)
	out.BlockIdx = Dim3{
		X: resolve(c.BlockIdx.X, focus.BlockIdx.X),
		Y: resolve(c.BlockIdx.Y, focus.BlockIdx.Y),
		Z: resolve(c.BlockIdx.Z, focus.BlockIdx.Z),
	}
	out.ThreadIdx = Dim3{
		X: resolve(c.ThreadIdx.X, focus.ThreadIdx.X),
		Y: resolve(c.ThreadIdx.Y, focus.ThreadIdx.Y),
		Z: resolve(c.ThreadIdx.Z, focus.ThreadIdx.Z),
	}
	out.Resolve()
	return out, nil
}
