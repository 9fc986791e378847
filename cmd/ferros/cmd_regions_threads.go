package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferros-go/ferros/debugger"
)

func newRegionsCmd(s *session) *cobra.Command {
	f := attachFlags{}
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List the target's virtual memory regions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withAttached(f, func(d *debugger.Debugger) error {
				regions, err := d.MemoryRegions()
				if err != nil {
					return err
				}
				for _, r := range regions {
					fmt.Printf("%s-%s %s %-20s %s\n", r.Start, r.End, r.Permissions, r.Name, r.MaxPermissions)
				}
				return nil
			})
		},
	}
	addAttachFlags(cmd, &f)
	return cmd
}

func newThreadsCmd(s *session) *cobra.Command {
	f := attachFlags{}
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List the target's threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withAttached(f, func(d *debugger.Debugger) error {
				threads, err := d.Threads()
				if err != nil {
					return err
				}
				for _, t := range threads {
					fmt.Printf("thread %d\n", t)
				}
				return nil
			})
		},
	}
	addAttachFlags(cmd, &f)
	return cmd
}
