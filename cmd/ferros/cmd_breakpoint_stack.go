package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferros-go/ferros/debugger"
	"github.com/ferros-go/ferros/types"
)

func newBreakpointCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "breakpoint",
		Aliases: []string{"bp"},
		Short:   "Add, remove, or list breakpoints",
	}
	cmd.AddCommand(newBreakpointAddCmd(s), newBreakpointListCmd(s))
	return cmd
}

func newBreakpointAddCmd(s *session) *cobra.Command {
	f := attachFlags{}
	var addrStr, kind string
	cmd := &cobra.Command{
		Use:   "add --address <addr>",
		Short: "Install a breakpoint and print its assigned id",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(addrStr)
			if err != nil {
				return err
			}
			return s.withAttached(f, func(d *debugger.Debugger) error {
				info, err := d.AddBreakpoint(types.BreakpointRequest{
					Address: addr,
					Kind:    types.BreakpointKind(kind),
				})
				if err != nil {
					return err
				}
				fmt.Printf("breakpoint %d at %s (%s)\n", info.Id, info.Address, info.Kind)
				return nil
			})
		},
	}
	addAttachFlags(cmd, &f)
	cmd.Flags().StringVar(&addrStr, "address", "", "address to break at")
	cmd.Flags().StringVar(&kind, "kind", string(types.KindSoftware), "software, hardware, or watchpoint")
	cmd.MarkFlagRequired("address")
	return cmd
}

func newBreakpointListCmd(s *session) *cobra.Command {
	f := attachFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed breakpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withAttached(f, func(d *debugger.Debugger) error {
				bps, err := d.Breakpoints()
				if err != nil {
					return err
				}
				for _, bp := range bps {
					fmt.Printf("%d %s %s enabled=%v hits=%d\n", bp.Id, bp.Address, bp.Kind, bp.Enabled, bp.HitCount)
				}
				return nil
			})
		},
	}
	addAttachFlags(cmd, &f)
	return cmd
}

func newStackCmd(s *session) *cobra.Command {
	f := attachFlags{}
	var maxFrames int
	cmd := &cobra.Command{
		Use:   "stack",
		Short: "Print the active thread's unwound call stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withAttached(f, func(d *debugger.Debugger) error {
				frames, err := d.StackTrace(maxFrames)
				if err != nil {
					return err
				}
				for _, fr := range frames {
					symbol := "??"
					if fr.Symbol != nil {
						symbol = fr.Symbol.Display()
					}
					fmt.Printf("#%-2d %s %s (%s)\n", fr.Index, fr.PC, symbol, fr.Status)
				}
				return nil
			})
		},
	}
	addAttachFlags(cmd, &f)
	cmd.Flags().IntVar(&maxFrames, "max-frames", 0, "frame budget (0 uses the configured default)")
	return cmd
}
