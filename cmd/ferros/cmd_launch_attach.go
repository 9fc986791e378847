package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferros-go/ferros/platform"
)

func newLaunchCmd(s *session) *cobra.Command {
	var capture bool
	cmd := &cobra.Command{
		Use:   "launch <program> [-- args...]",
		Short: "Launch a program suspended and attach to it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s.dbg = nil
			dev := newPlatformDebuggee()
			s.dbg = newDebugger(s, dev)
			defer s.dbg.Detach()

			pid, err := s.dbg.Launch(context.Background(), platform.LaunchOptions{
				Program:       args[0],
				Args:          args[1:],
				CaptureOutput: capture,
			})
			if err != nil {
				return err
			}
			fmt.Printf("launched pid %d, stopped at entry\n", pid)
			return nil
		},
	}
	cmd.Flags().BoolVar(&capture, "capture", false, "capture the child's stdout/stderr through a pty")
	return cmd
}

func newAttachCmd(s *session) *cobra.Command {
	var pid int32
	cmd := &cobra.Command{
		Use:   "attach --pid <pid>",
		Short: "Attach to a running process",
		RunE: func(cmd *cobra.Command, args []string) error {
			dev := newPlatformDebuggee()
			s.dbg = newDebugger(s, dev)
			defer s.dbg.Detach()

			if err := s.dbg.Attach(processIdFromInt32(pid)); err != nil {
				return err
			}
			fmt.Printf("attached to pid %d, running\n", pid)
			return nil
		},
	}
	cmd.Flags().Int32Var(&pid, "pid", 0, "process id to attach to")
	cmd.MarkFlagRequired("pid")
	return cmd
}

func newDetachCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "detach",
		Short: "Detach from the current target (no-op outside an attached invocation)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.dbg == nil {
				return nil
			}
			return s.dbg.Detach()
		},
	}
}
