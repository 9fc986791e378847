package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferros-go/ferros/debugger"
	"github.com/ferros-go/ferros/registers"
	"github.com/ferros-go/ferros/types"
)

func newRegistersCmd(s *session) *cobra.Command {
	f := attachFlags{}
	var threadStr string
	cmd := &cobra.Command{
		Use:   "registers",
		Short: "Print the active (or given) thread's general-purpose registers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withAttached(f, func(d *debugger.Debugger) error {
				var regs types.Registers
				var err error
				if threadStr != "" {
					thread, perr := parseThreadId(threadStr)
					if perr != nil {
						return perr
					}
					regs, err = d.ReadRegistersFor(thread)
				} else {
					regs, err = d.ReadRegisters()
				}
				if err != nil {
					return err
				}
				printRegisters(regs)
				return nil
			})
		},
	}
	addAttachFlags(cmd, &f)
	cmd.Flags().StringVar(&threadStr, "thread", "", "thread id (defaults to the active thread)")
	return cmd
}

func printRegisters(r types.Registers) {
	fmt.Printf("pc  = %s\n", r.PC)
	fmt.Printf("sp  = %s\n", r.SP)
	fmt.Printf("fp  = %s\n", r.FP)
	names := registers.NamesFor(r.Arch)
	for i, n := range names {
		if i >= len(r.General) {
			break
		}
		fmt.Printf("%-4s= %#016x\n", n, r.General[i])
	}
}
