package debugger

import (
	"context"
	"runtime"

	"github.com/ferros-go/ferros/breakpoints"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// runExceptionLoop implements component J. It is meant to run on a
// dedicated OS thread (mach_msg's blocking receive and the thread's
// exception port are both thread-affined kernel resources), so the
// goroutine locks itself to its OS thread for its entire lifetime.
func (d *Debugger) runExceptionLoop(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		msg, err := d.dev.ReceiveException(ctx)
		if err != nil {
			// Context cancellation (Detach) and a dead exception port
			// both end the loop the same way: cleanly, no event.
			d.log.WithError(err).Debug("exception loop exiting")
			return
		}

		r, pc := d.readAndRewind(msg)
		reason := reasonFor(msg, pc)
		thread := msg.Thread

		if reason.Kind == types.StopBreakpoint {
			info, hit := d.bp.Store().RecordHit(pc)
			if hit && info.Predicate != nil && !breakpoints.EvaluatePredicate(info.Predicate, r, d.mem.Cache(), info.HitCount) {
				// Predicate didn't hold: swallow the exception and let
				// the thread run on without ever surfacing a stop.
				if err := d.dev.ReplyException(msg, true); err != nil {
					d.log.WithError(err).Warn("failed to reply to exception while skipping a conditional breakpoint")
				}
				continue
			}
		}

		d.mu.Lock()
		d.stopped = true
		d.stopReason = reason
		d.pendingThread = &thread
		d.mu.Unlock()

		d.bus.Publish(types.TargetStopped(reason, &thread))

		select {
		case cmd := <-d.commands:
			if cmd == cmdShutdown {
				return
			}
			if err := d.dev.ReplyException(msg, true); err != nil {
				d.log.WithError(err).Warn("failed to reply to exception, target may remain stopped")
			}
			d.mu.Lock()
			d.stopped = false
			d.stopReason = types.Running()
			d.pendingThread = nil
			d.mu.Unlock()
			d.bus.Publish(types.TargetResumed())
		case <-ctx.Done():
			return
		}
	}
}

// readAndRewind reads the faulting thread's general registers and, on
// a breakpoint exception, rewinds PC by the architecture's trap size
// (the trap instruction has already executed, so PC points past it)
// via a register read-modify-write. It returns the (possibly rewound)
// register snapshot and its PC, both used for predicate evaluation and
// stop-reason reporting. For any other exception kind the registers are
// returned unchanged.
func (d *Debugger) readAndRewind(msg platform.ExceptionMessage) (types.Registers, types.Address) {
	r, err := d.regs.ReadGeneral(msg.Thread)
	if err != nil {
		d.log.WithError(err).Warn("failed to read registers while handling exception")
		return types.Registers{}, 0
	}
	if msg.Kind != platform.ExceptionBreakpoint {
		return r, r.PC
	}

	size := breakpoints.TrapInstructionSize(d.arch)
	r.PC = r.PC.Sub(uint64(size))
	if err := d.regs.WriteGeneral(msg.Thread, r); err != nil {
		d.log.WithError(err).Warn("failed to rewind pc after breakpoint trap")
	}
	return r, r.PC
}

// reasonFor implements step 4's exception-kind-to-StopReason mapping.
// Signal numbers are the conventional BSD values so clients that
// expect POSIX-shaped signal numbers (SIGSEGV=11, SIGILL=4, SIGFPE=8,
// SIGTRAP=5) see familiar numbers even though Darwin delivered a Mach
// exception, not a signal.
func reasonFor(msg platform.ExceptionMessage, pc types.Address) types.StopReason {
	const (
		sigIll  = 4
		sigTrap = 5
		sigFpe  = 8
		sigSegv = 11
	)
	switch msg.Kind {
	case platform.ExceptionBreakpoint:
		return types.Breakpoint(pc)
	case platform.ExceptionBadAccess:
		return types.Signal(sigSegv)
	case platform.ExceptionBadInstruction:
		return types.Signal(sigIll)
	case platform.ExceptionArithmetic:
		return types.Signal(sigFpe)
	case platform.ExceptionSoftware:
		return types.Signal(sigTrap)
	default:
		return types.Unknown()
	}
}
