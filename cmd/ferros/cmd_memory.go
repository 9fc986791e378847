package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferros-go/ferros/debugger"
	"github.com/ferros-go/ferros/ferrerr"
)

func newMemoryCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Read or write the target's memory",
	}
	cmd.AddCommand(newMemoryReadCmd(s), newMemoryWriteCmd(s))
	return cmd
}

func newMemoryReadCmd(s *session) *cobra.Command {
	f := attachFlags{}
	var addrStr string
	var length int
	cmd := &cobra.Command{
		Use:   "read --address <addr> --length <n>",
		Short: "Read length bytes at address and print a hexdump",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(addrStr)
			if err != nil {
				return err
			}
			return s.withAttached(f, func(d *debugger.Debugger) error {
				data, err := d.ReadMemory(addr, length)
				if err != nil {
					return err
				}
				fmt.Print(hex.Dump(data))
				return nil
			})
		},
	}
	addAttachFlags(cmd, &f)
	cmd.Flags().StringVar(&addrStr, "address", "", "start address (hex with 0x prefix, or decimal)")
	cmd.Flags().IntVar(&length, "length", 64, "number of bytes to read")
	cmd.MarkFlagRequired("address")
	return cmd
}

func newMemoryWriteCmd(s *session) *cobra.Command {
	f := attachFlags{}
	var addrStr, dataHex string
	cmd := &cobra.Command{
		Use:   "write --address <addr> --data <hex>",
		Short: "Write hex-encoded bytes at address",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(addrStr)
			if err != nil {
				return err
			}
			data, err := hex.DecodeString(dataHex)
			if err != nil {
				return ferrerr.InvalidArgument("invalid hex data: " + err.Error())
			}
			return s.withAttached(f, func(d *debugger.Debugger) error {
				return d.WriteMemory(addr, data)
			})
		},
	}
	addAttachFlags(cmd, &f)
	cmd.Flags().StringVar(&addrStr, "address", "", "start address (hex with 0x prefix, or decimal)")
	cmd.Flags().StringVar(&dataHex, "data", "", "hex-encoded bytes to write")
	cmd.MarkFlagRequired("address")
	cmd.MarkFlagRequired("data")
	return cmd
}
