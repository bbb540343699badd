package registry

// BreakpointHooks is the narrow interface through which the registry asks
// the host debugger to resolve or clean up breakpoints; the registry only
// decides *when* to call these, never how (spec.md §4.5).
type BreakpointHooks interface {
	ResolveBreakpoints(elfImage []byte)
	CleanupBreakpoints(contextID uint64)
}

// Devices owns one Contexts set per accelerator device, and the process-wide
// "current context" pointer (spec.md §3's Ownership paragraph: "Each device
// owns ... its set of contexts"; current context is process-wide but
// single-threaded-consumer state like the focus).
type Devices struct {
	hooks      BreakpointHooks
	perDevice  map[uint32]*Contexts
	current    *Context
	savedStack []*Context
}

func NewDevices(hooks BreakpointHooks) *Devices {
	return &Devices{hooks: hooks, perDevice: map[uint32]*Contexts{}}
}

// Contexts returns (creating if necessary) the context set owned by dev.
func (d *Devices) Contexts(dev uint32) *Contexts {
	c, ok := d.perDevice[dev]
	if !ok {
		c = newContexts(dev)
		d.perDevice[dev] = c
	}
	return c
}

// FindContextByID searches dev's context set.
func (d *Devices) FindContextByID(dev uint32, id uint64) *Context {
	return d.Contexts(dev).FindByID(id)
}

func (d *Devices) CurrentContext() *Context { return d.current }

func (d *Devices) SetCurrentContext(ctx *Context) { d.current = ctx }

// SaveCurrentContext and RestoreCurrentContext implement the scoped-cleanup
// pattern spec.md §9 calls for around KERNEL_READY's temporary context
// retargeting: push/pop the process-wide current-context pointer on a small
// stack. This is distinct from the *host thread* retargeting KERNEL_READY
// also performs (see event.withThreadFocus, which scopes
// hostdbg.Debugger.CurrentThreadID instead).
func (d *Devices) SaveCurrentContext() {
	d.savedStack = append(d.savedStack, d.current)
}

func (d *Devices) RestoreCurrentContext() {
	n := len(d.savedStack)
	if n == 0 {
		return
	}
	d.current = d.savedStack[n-1]
	d.savedStack = d.savedStack[:n-1]
}

// CreateContext implements CTX_CREATE: create the context, add it to the
// device's set, and push it onto tid's stack.
func (d *Devices) CreateContext(dev uint32, contextID uint64, tid uint32) *Context {
	ctx := &Context{ID: contextID, Device: dev}
	contexts := d.Contexts(dev)
	contexts.Add(ctx)
	contexts.Stack(ctx, tid)
	return ctx
}

// DestroyContext implements CTX_DESTROY exactly per spec.md §4.3: pop it
// from tid's stack if active there, clear it as process-current if it is
// current, ask the host debugger to drop and unresolve its breakpoints, then
// remove and delete it.
func (d *Devices) DestroyContext(dev uint32, contextID uint64, tid uint32) {
	contexts := d.Contexts(dev)
	ctx := contexts.FindByID(contextID)
	if ctx == nil {
		return
	}

	if contexts.Active(tid) == ctx {
		contexts.Unstack(tid)
	}
	if d.current == ctx {
		d.current = nil
	}

	d.hooks.CleanupBreakpoints(contextID)
	contexts.Remove(ctx)
}

// PushContext implements CTX_PUSH.
func (d *Devices) PushContext(dev uint32, contextID uint64, tid uint32) {
	contexts := d.Contexts(dev)
	ctx := contexts.FindByID(contextID)
	if ctx == nil {
		return
	}
	contexts.Stack(ctx, tid)
}

// PopContext implements CTX_POP.
func (d *Devices) PopContext(dev uint32, contextID uint64, tid uint32) *Context {
	return d.Contexts(dev).Unstack(tid)
}

// LoadElfImage implements ELF_IMAGE_LOADED: append the module to its
// context, make that context current, and ask the host debugger to resolve
// any pending breakpoints against the new image.
func (d *Devices) LoadElfImage(dev uint32, contextID, moduleID uint64, image []byte) {
	ctx := d.FindContextByID(dev, contextID)
	if ctx == nil {
		return
	}
	m := &Module{ID: moduleID, Context: contextID, ElfImage: image}
	ctx.addModule(m)
	d.SetCurrentContext(ctx)
	d.hooks.ResolveBreakpoints(image)
}
