package coord

import (
	"strconv"
	"strings"
)

// Mode selects the sentinel used for axes the input text leaves unspecified.
type Mode uint8

const (
	// ModeFilter defaults missing components to Wildcard.
	ModeFilter Mode = iota
	// ModeSwitch defaults missing components to Current.
	ModeSwitch
	// ModeQuery behaves like ModeSwitch: it renders/consumes the current
	// focus rather than enumerating a range.
	ModeQuery
)

// axisName identifies which field of Coord a token assigns.
type axisName string

const (
	axisDevice axisName = "device"
	axisSM     axisName = "sm"
	axisWarp   axisName = "warp"
	axisLane   axisName = "lane"
	axisKernel axisName = "kernel"
	axisGrid   axisName = "grid"
	axisBlock  axisName = "block"
	axisThread axisName = "thread"
)

// Parse parses a filter, switch, or query expression of the form
// "<axis> <value>" or a comma-separated list of "axis=value" pairs. value
// may be a decimal literal, "*" (wildcard), a "(x,y,z)" tuple (block/thread
// only, with trailing components defaulting to 0), or empty (current).
// Components the text never mentions default per mode: Wildcard for
// ModeFilter, Current for ModeSwitch/ModeQuery.
func Parse(text string, mode Mode) (Coord, error) {
	var c Coord
	switch mode {
	case ModeFilter:
		c = Filter()
	default:
		c = Switch()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		c.Resolve()
		return c, nil
	}

	for _, field := range splitTopLevel(text, ',') {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		name, value, err := splitAssignment(field)
		if err != nil {
			return Coord{}, err
		}
		if err := assign(&c, axisName(strings.ToLower(name)), value); err != nil {
			return Coord{}, err
		}
	}

	c.Resolve()
	return c, nil
}

// splitTopLevel splits on sep, ignoring occurrences inside parentheses.
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if s[i] == sep && depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

// splitAssignment accepts either "axis value" or "axis=value" or a bare
// "axis" (value then empty, which assign turns into Current in every mode).
func splitAssignment(field string) (name, value string, err error) {
	if idx := strings.IndexByte(field, '='); idx >= 0 {
		return strings.TrimSpace(field[:idx]), strings.TrimSpace(field[idx+1:]), nil
	}
	parts := strings.SplitN(field, " ", 2)
	name = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		value = strings.TrimSpace(parts[1])
	}
	if name == "" {
		return "", "", ErrParse
	}
	return name, value, nil
}

func assign(c *Coord, name axisName, value string) error {
	switch name {
	case axisDevice:
		return assignAxis(&c.Dev, value)
	case axisSM:
		return assignAxis(&c.SM, value)
	case axisWarp:
		return assignAxis(&c.Warp, value)
	case axisLane:
		return assignAxis(&c.Lane, value)
	case axisKernel:
		return assignAxis(&c.KernelID, value)
	case axisGrid:
		return assignAxis(&c.GridID, value)
	case axisBlock:
		return assignDim3(&c.BlockIdx, value)
	case axisThread:
		return assignDim3(&c.ThreadIdx, value)
	default:
		return ErrParse
	}
}

func assignAxis(a *Axis, value string) error {
	switch value {
	case "":
		*a = Curr()
		return nil
	case "*":
		*a = Wild()
		return nil
	default:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return ErrParse
		}
		*a = Lit(n)
		return nil
	}
}

// assignDim3 parses "*", "", a bare integer (x only, y=z=0), or "(x,y,z)"
// with optional trailing components defaulting to 0.
func assignDim3(d *Dim3, value string) error {
	switch value {
	case "":
		*d = CurrDim3()
		return nil
	case "*":
		*d = WildDim3()
		return nil
	}

	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "(") {
		if !strings.HasSuffix(value, ")") {
			return ErrParse
		}
		value = value[1 : len(value)-1]
	}

	comps := splitTopLevel(value, ',')
	if len(comps) == 0 || len(comps) > 3 {
		return ErrParse
	}

	var axes [3]Axis
	for i := range axes {
		axes[i] = Lit(0)
	}
	for i, comp := range comps {
		comp = strings.TrimSpace(comp)
		if comp == "" || comp == "*" {
			axes[i] = Wild()
			continue
		}
		n, err := strconv.ParseUint(comp, 10, 32)
		if err != nil {
			return ErrParse
		}
		axes[i] = Lit(n)
	}

	d.X, d.Y, d.Z = axes[0], axes[1], axes[2]
	return nil
}
