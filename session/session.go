// Package session wires the coordinate algebra, state cache, event
// processor, notification machine, and registries into one long-lived
// process-wide value, the way cuda-gdb's own global debugger context does.
// The wiring itself follows the teacher's value-receiver builder convention
// (config.DeviceBuilder in the example pack).
package session

import (
	"log/slog"

	"github.com/Akheon23/cuda-gdb/cache"
	"github.com/Akheon23/cuda-gdb/command"
	"github.com/Akheon23/cuda-gdb/coord"
	"github.com/Akheon23/cuda-gdb/debugapi"
	"github.com/Akheon23/cuda-gdb/event"
	"github.com/Akheon23/cuda-gdb/internal/gdblog"
	"github.com/Akheon23/cuda-gdb/notify"
	"github.com/Akheon23/cuda-gdb/registry"
)

// Session is the assembled debugger core: every package's state, held
// together without any package importing another's concrete type except
// along the leaf-to-root direction spec.md §2 requires.
type Session struct {
	API     debugapi.API
	Cache   *cache.System
	Devices *registry.Devices
	Kernels *registry.Kernels
	Attach  *registry.Attach
	Focus   *coord.Focus
	Notify  *notify.Machine
	Events  *event.Processor
	Command *command.Dispatcher
	Options command.Options
	Logger  *slog.Logger
}

// Builder assembles a Session, mirroring the teacher's DeviceBuilder: each
// With* method returns a modified copy, so callers chain without mutating a
// shared value.
type Builder struct {
	api     debugapi.API
	hooks   event.HostHooks
	signal  notify.Signaler
	opts    command.Options
	logger  *slog.Logger
}

func NewBuilder() Builder {
	return Builder{opts: command.DefaultOptions()}
}

func (b Builder) WithAPI(api debugapi.API) Builder {
	b.api = api
	return b
}

func (b Builder) WithHostHooks(hooks event.HostHooks) Builder {
	b.hooks = hooks
	return b
}

func (b Builder) WithSignaler(signal notify.Signaler) Builder {
	b.signal = signal
	return b
}

func (b Builder) WithOptions(opts command.Options) Builder {
	b.opts = opts
	return b
}

func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// Build constructs the Session, querying the API once for its device count
// to size the cache up front (spec.md §4.2: per-device caches, lazily
// populated field by field from there on).
func (b Builder) Build() (*Session, error) {
	numDevices, err := b.api.NumDevices()
	if err != nil {
		return nil, err
	}

	kernels := registry.NewKernels()
	devices := registry.NewDevices(b.hooks)
	attach := &registry.Attach{}
	focus := &coord.Focus{}
	sys := cache.NewSystem(b.api, kernels, numDevices, b.opts.DeferKernelLaunchNotifications)
	nm := notify.New(b.signal)

	logger := b.logger
	if logger == nil {
		logger = gdblog.Default(b.opts.DebugNotifications)
	}

	proc := event.NewProcessor(b.api, sys, devices, kernels, attach, focus, b.hooks,
		timeoutAdapter{nm}, event.Options{
			BreakOnLaunchApp:    b.opts.BreakOnLaunchApp,
			BreakOnLaunchSystem: b.opts.BreakOnLaunchSystem,
			ShowContextEvents:   b.opts.ShowContextEvents,
			CoalesceBreakOnLine: b.opts.CoalesceBreakOnLine,
			GPUBusyCheck:        b.opts.GPUBusyCheck,
		}, logger)

	dispatcher := command.NewDispatcher(sys, focus, b.opts)

	return &Session{
		API: b.api, Cache: sys, Devices: devices, Kernels: kernels, Attach: attach,
		Focus: focus, Notify: nm, Events: proc, Command: dispatcher, Options: b.opts,
		Logger: logger,
	}, nil
}

// timeoutAdapter bridges event.TimeoutNotifier to notify.Machine's richer
// Notify(Data) signature.
type timeoutAdapter struct{ m *notify.Machine }

func (t timeoutAdapter) Notify(threadID uint32, timeout bool) {
	t.m.Notify(notify.Data{ThreadID: threadID, Timeout: timeout})
}
