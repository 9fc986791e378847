package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferros-go/ferros/debugger"
)

func newSuspendCmd(s *session) *cobra.Command {
	f := attachFlags{}
	cmd := &cobra.Command{
		Use:   "suspend",
		Short: "Suspend every thread in the target",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withAttached(f, func(d *debugger.Debugger) error {
				if err := d.Suspend(); err != nil {
					return err
				}
				fmt.Println("suspended")
				return nil
			})
		},
	}
	addAttachFlags(cmd, &f)
	return cmd
}

func newResumeCmd(s *session) *cobra.Command {
	f := attachFlags{}
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume the target",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withAttached(f, func(d *debugger.Debugger) error {
				if err := d.Resume(); err != nil {
					return err
				}
				fmt.Println("resumed")
				return nil
			})
		},
	}
	addAttachFlags(cmd, &f)
	return cmd
}
