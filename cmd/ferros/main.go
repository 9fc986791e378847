// Command ferros is the CLI front-end over the debugger façade: attach,
// launch, registers, memory, regions, threads, suspend, resume, detach,
// and info subcommands, wired with cobra the way the pack's delve
// manifests structure their own command trees.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ferros-go/ferros/config"
	"github.com/ferros-go/ferros/ferroslog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	sess := &session{}

	root := &cobra.Command{
		Use:           "ferros",
		Short:         "Native macOS process debugger",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			sess.cfg = cfg
			sess.log = ferroslog.Setup(cfg.LogConfig)
			return nil
		},
	}

	root.AddCommand(
		newLaunchCmd(sess),
		newAttachCmd(sess),
		newDetachCmd(sess),
		newRegistersCmd(sess),
		newMemoryCmd(sess),
		newRegionsCmd(sess),
		newThreadsCmd(sess),
		newSuspendCmd(sess),
		newResumeCmd(sess),
		newBreakpointCmd(sess),
		newStackCmd(sess),
		newInfoCmd(sess),
		newMonitorCmd(sess),
	)
	return root
}
