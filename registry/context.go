// Package registry tracks live contexts, modules, and kernels (spec.md
// §4.5), and the 4-phase attach state machine. Breakpoint placement itself
// is delegated to the host debugger through two narrow hooks
// (BreakpointHooks); the registry only decides when to call them.
package registry

// Module owns one loaded ELF image. Modules are immutable once loaded and
// may be read concurrently for breakpoint resolution (spec.md §5).
type Module struct {
	ID       uint64
	Context  uint64
	ElfImage []byte
}

// Context is the per-CUcontext-handle record: its parent device and the
// ELF-load-ordered modules it owns.
type Context struct {
	ID      uint64
	Device  uint32
	modules []*Module
}

// Modules returns the modules of this context in ELF-load order.
func (c *Context) Modules() []*Module {
	return c.modules
}

func (c *Context) addModule(m *Module) {
	c.modules = append(c.modules, m)
}

func (c *Context) findModuleByID(id uint64) *Module {
	for _, m := range c.modules {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Contexts is one device's context set plus its per-host-thread context
// stacks, per spec.md §3 ("Contexts form a per-device linked set plus one
// per-host-thread context stack").
type Contexts struct {
	device uint32
	all    []*Context
	stacks map[uint32][]*Context // tid -> stack, top = last element
}

func newContexts(device uint32) *Contexts {
	return &Contexts{device: device, stacks: map[uint32][]*Context{}}
}

func (c *Contexts) Add(ctx *Context) {
	c.all = append(c.all, ctx)
}

// Remove deletes ctx from the device's context set.
func (c *Contexts) Remove(ctx *Context) {
	for i, other := range c.all {
		if other == ctx {
			c.all = append(c.all[:i], c.all[i+1:]...)
			return
		}
	}
}

func (c *Contexts) FindByID(id uint64) *Context {
	for _, ctx := range c.all {
		if ctx.ID == id {
			return ctx
		}
	}
	return nil
}

// FindByCodeAddress resolves a context by scanning its modules' ELF images;
// address resolution itself is an external collaborator's job (spec.md §6),
// so this takes a resolver callback rather than parsing ELF here.
func (c *Contexts) FindByCodeAddress(contains func(elfImage []byte) bool) *Context {
	for _, ctx := range c.all {
		for _, m := range ctx.modules {
			if contains(m.ElfImage) {
				return ctx
			}
		}
	}
	return nil
}

func (c *Contexts) ForEach(fn func(*Context)) {
	for _, ctx := range c.all {
		fn(ctx)
	}
}

func (c *Contexts) IsAnyPresent() bool { return len(c.all) > 0 }

// Stack pushes ctx onto host thread tid's context stack.
func (c *Contexts) Stack(ctx *Context, tid uint32) {
	c.stacks[tid] = append(c.stacks[tid], ctx)
}

// Unstack pops and returns the top of host thread tid's context stack, or
// nil if the stack is empty.
func (c *Contexts) Unstack(tid uint32) *Context {
	stack := c.stacks[tid]
	if len(stack) == 0 {
		return nil
	}
	top := stack[len(stack)-1]
	c.stacks[tid] = stack[:len(stack)-1]
	return top
}

// Active returns the top of host thread tid's context stack without
// popping it.
func (c *Contexts) Active(tid uint32) *Context {
	stack := c.stacks[tid]
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}
