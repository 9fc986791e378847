package main

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ferros-go/ferros/config"
	"github.com/ferros-go/ferros/debugger"
	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// session carries the CLI's live state across one cobra invocation: a
// single process attaches or launches, performs the requested
// subcommand's operation, then detaches before exiting, since the
// kernel task/thread port handles a Debuggee owns do not survive past
// this process's lifetime anyway.
type session struct {
	cfg config.Config
	log *logrus.Logger
	dbg *debugger.Debugger
}

// attachFlags are the persistent flags every subcommand that needs a
// live target shares: exactly one of --pid or --launch must be set.
type attachFlags struct {
	pid    int32
	launch string
	args   []string
}

func addAttachFlags(cmd *cobra.Command, f *attachFlags) {
	cmd.Flags().Int32Var(&f.pid, "pid", 0, "attach to an existing process id")
	cmd.Flags().StringVar(&f.launch, "launch", "", "launch a program suspended and attach to it")
	cmd.Flags().StringArrayVar(&f.args, "arg", nil, "argument to pass to --launch (repeatable)")
}

// withAttached runs fn against a Debugger attached per f, detaching
// unconditionally afterward.
func (s *session) withAttached(f attachFlags, fn func(*debugger.Debugger) error) error {
	if f.pid == 0 && f.launch == "" {
		return ferrerr.InvalidArgument("one of --pid or --launch is required")
	}
	if f.pid != 0 && f.launch != "" {
		return ferrerr.InvalidArgument("--pid and --launch are mutually exclusive")
	}

	s.dbg = debugger.New(newPlatformDebuggee(), debugger.Config{
		MemoryPageCacheCapacity: s.cfg.MemoryPageCacheEntries,
		DefaultStackFrameBudget: s.cfg.DefaultFrameBudget,
	})
	defer func() {
		if err := s.dbg.Detach(); err != nil {
			s.log.WithError(err).Warn("detach failed")
		}
	}()

	if f.launch != "" {
		_, err := s.dbg.Launch(context.Background(), platform.LaunchOptions{
			Program:       f.launch,
			Args:          f.args,
			CaptureOutput: false,
		})
		if err != nil {
			return err
		}
	} else {
		if err := s.dbg.Attach(types.ProcessId(f.pid)); err != nil {
			return err
		}
	}

	return fn(s.dbg)
}

// newDebugger builds a Debugger over dev using the session's loaded
// config, without attaching — launch/attach commands call Launch/Attach
// themselves right after.
func newDebugger(s *session, dev platform.Debuggee) *debugger.Debugger {
	return debugger.New(dev, debugger.Config{
		MemoryPageCacheCapacity: s.cfg.MemoryPageCacheEntries,
		DefaultStackFrameBudget: s.cfg.DefaultFrameBudget,
	})
}

func processIdFromInt32(pid int32) types.ProcessId { return types.ProcessId(pid) }

func parseThreadId(s string) (types.ThreadId, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, ferrerr.InvalidArgument("invalid thread id: " + s)
	}
	return types.ThreadId(n), nil
}

func parseUint64(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, ferrerr.InvalidArgument("invalid number: " + s)
	}
	return n, nil
}

func parseAddress(s string) (types.Address, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, ferrerr.InvalidArgument("invalid address: " + s)
	}
	return types.Address(n), nil
}
