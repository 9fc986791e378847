// Package debugger implements component L: the public façade tying the
// platform handle, the memory/register/breakpoint/thread subsystems,
// the symbol cache, and the unwinder together behind one state machine
// (Detached -> Attached{Running, Stopped}), plus the exception loop
// (component J) that drives Running -> Stopped transitions.
package debugger

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ferros-go/ferros/breakpoints"
	"github.com/ferros-go/ferros/events"
	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/memory"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/registers"
	"github.com/ferros-go/ferros/symbols"
	"github.com/ferros-go/ferros/threads"
	"github.com/ferros-go/ferros/types"
	"github.com/ferros-go/ferros/unwind"
)

// Config tunes the subsystems a Debugger wires together.
type Config struct {
	MemoryPageCacheCapacity int // passed to memory.New; 0 uses its default
	SymbolCacheCapacity     int // passed to symbols.NewCache; 0 uses its default
	DefaultStackFrameBudget int // used by StackTrace when callers pass 0
}

func defaultConfig(cfg Config) Config {
	if cfg.DefaultStackFrameBudget <= 0 {
		cfg.DefaultStackFrameBudget = 64
	}
	return cfg
}

// Debugger is one attached-or-not debugging session. Not safe to reuse
// across two different targets: build a new Debugger per session.
type Debugger struct {
	dev platform.Debuggee
	cfg Config
	log *logrus.Entry

	mu            sync.Mutex
	attached      bool
	stopped       bool
	stopReason    types.StopReason
	pendingThread *types.ThreadId

	mem      *memory.Memory
	regs     *registers.Manager
	threads  *threads.Manager
	bp       *breakpoints.Manager
	symCache *symbols.Cache
	unwinder *unwind.Unwinder
	bus      *events.Bus
	arch     types.Architecture

	stdout platform.CapturedStream
	stderr platform.CapturedStream

	loopCancel context.CancelFunc
	loopGroup  *errgroup.Group
	commands   chan loopCommand
}

type loopCommand int

const (
	cmdContinue loopCommand = iota
	cmdShutdown
)

// New builds a Debugger in the Detached state over dev.
func New(dev platform.Debuggee, cfg Config) *Debugger {
	return &Debugger{
		dev: dev,
		cfg: defaultConfig(cfg),
		log: logrus.WithField("component", "debugger"),
		bus: events.NewBus(),
	}
}

// Events returns a clonable subscription to the façade's event stream
// (component K): one subscriber per call, each draining independently.
func (d *Debugger) Events() *events.Subscription { return d.bus.Subscribe() }

// IsAttached, IsStopped, CurrentStopReason, and Architecture are the pure
// observation operations from component A.
func (d *Debugger) IsAttached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attached
}

func (d *Debugger) IsStopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

func (d *Debugger) CurrentStopReason() types.StopReason {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopReason
}

func (d *Debugger) Architecture() types.Architecture { return d.arch }

// requireAttached is the guard every operation needing a live target
// runs first, per component A's "every operation that requires an
// attached target fails with NotAttached otherwise".
func (d *Debugger) requireAttached() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.attached {
		return ferrerr.NotAttachedErr()
	}
	return nil
}

func (d *Debugger) requireStopped() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.attached {
		return ferrerr.NotAttachedErr()
	}
	if !d.stopped {
		return ferrerr.NotStoppedErr()
	}
	return nil
}

// Launch spawns program suspended, attaches to it, and leaves the
// façade Attached{Stopped} (the child never ran before this call
// returns).
func (d *Debugger) Launch(ctx context.Context, opts platform.LaunchOptions) (types.ProcessId, error) {
	res, err := d.dev.Launch(ctx, opts)
	if err != nil {
		return 0, err
	}
	d.stdout = res.Stdout
	d.stderr = res.Stderr
	if err := d.setupAttached(res.Pid, true); err != nil {
		return 0, err
	}
	return res.Pid, nil
}

// Attach obtains a task handle for an already-running process and
// leaves the façade Attached{Running} (the default; this engine does
// not probe whether the target was already externally suspended).
func (d *Debugger) Attach(pid types.ProcessId) error {
	if err := d.dev.Attach(pid); err != nil {
		return err
	}
	return d.setupAttached(pid, false)
}

// setupAttached wires every subsystem against d.dev, installs the
// exception port, and starts the exception loop. initiallyStopped
// reflects whether the caller already knows the target isn't running
// (Launch: true, spawned suspended; Attach: false).
func (d *Debugger) setupAttached(pid types.ProcessId, initiallyStopped bool) error {
	d.arch = d.dev.Architecture()

	d.mem = memory.New(d.dev, d.cfg.MemoryPageCacheCapacity)
	d.regs = registers.NewManager(d.dev, d.arch)
	d.threads = threads.NewManager(d.dev)
	d.bp = breakpoints.NewManager(d.mem, d.dev.DebugRegisters(), d.threads, d.arch)
	d.symCache = symbols.NewCache(d.cfg.SymbolCacheCapacity)
	d.unwinder = unwind.New(d.mem.Cache(), &imageSourceAdapter{cache: d.symCache})

	if _, err := d.threads.Threads(); err != nil {
		return err
	}

	if err := d.dev.InstallExceptionHandling(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, loopCtx := errgroup.WithContext(ctx)
	d.loopCancel = cancel
	d.loopGroup = group
	d.commands = make(chan loopCommand)

	d.mu.Lock()
	d.attached = true
	d.stopped = initiallyStopped
	if initiallyStopped {
		d.stopReason = types.Suspended()
	} else {
		d.stopReason = types.Running()
	}
	d.mu.Unlock()

	group.Go(func() error {
		d.runExceptionLoop(loopCtx)
		return nil
	})
	return nil
}

// Detach implements component A's detach: stops the exception loop,
// restores every breakpoint to its un-instrumented state, and releases
// the platform handle. Safe to call more than once.
func (d *Debugger) Detach() error {
	d.mu.Lock()
	if !d.attached {
		d.mu.Unlock()
		return nil
	}
	d.attached = false
	d.mu.Unlock()

	if d.loopCancel != nil {
		d.loopCancel()
	}
	select {
	case d.commands <- cmdShutdown:
	default:
	}
	if d.loopGroup != nil {
		_ = d.loopGroup.Wait()
	}

	if d.bp != nil {
		d.bp.RestoreAll()
	}
	if d.symCache != nil {
		d.symCache.Close()
	}
	return d.dev.Detach()
}
