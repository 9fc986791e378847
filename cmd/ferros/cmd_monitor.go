package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ferros-go/ferros/debugger"
	"github.com/ferros-go/ferros/types"
)

// newMonitorCmd is a thin line-oriented command loop over one attached
// session: a switch over the first whitespace-separated token dispatches
// to this engine's register/memory/breakpoint/thread/continue/backtrace
// operations. Deliberately thin: no history, no line editing, no
// scripting — the interactive TUI experience itself stays out of scope.
func newMonitorCmd(s *session) *cobra.Command {
	f := attachFlags{}
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Interactive command loop over one attached session (r, m, bp, bc, bl, t, c, bt, q)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withAttached(f, runMonitorLoop)
		},
	}
	addAttachFlags(cmd, &f)
	return cmd
}

func runMonitorLoop(d *debugger.Debugger) error {
	fmt.Println("ferros monitor — type 'h' for help, 'q' to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("(ferros) ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		name, rest := fields[0], fields[1:]

		switch name {
		case "q", "quit", "exit":
			return nil
		case "h", "help", "?":
			printMonitorHelp()
		case "r":
			monitorRegisters(d)
		case "m":
			monitorMemory(d, rest)
		case "bp":
			monitorBreakpointSet(d, rest)
		case "bc":
			monitorBreakpointClear(d, rest)
		case "bl":
			monitorBreakpointList(d)
		case "t":
			monitorThreads(d)
		case "c":
			monitorContinue(d)
		case "bt":
			monitorBacktrace(d)
		default:
			fmt.Printf("unknown command %q (try 'h')\n", name)
		}
	}
}

func printMonitorHelp() {
	fmt.Println(`commands:
  r               show active thread registers
  m <addr> [len]  hexdump memory (default len 64)
  bp <addr>       set a software breakpoint
  bc <id>         clear a breakpoint by id
  bl              list breakpoints
  t               list threads
  c               resume from the current stop
  bt              print the unwound call stack
  q               quit`)
}

func monitorRegisters(d *debugger.Debugger) {
	regs, err := d.ReadRegisters()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	printRegisters(regs)
}

func monitorMemory(d *debugger.Debugger, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: m <addr> [len]")
		return
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	length := 64
	if len(args) >= 2 {
		if n, err := parseAddress(args[1]); err == nil {
			length = int(n)
		}
	}
	data, err := d.ReadMemory(addr, length)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Print(hex.Dump(data))
}

func monitorBreakpointSet(d *debugger.Debugger, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: bp <addr>")
		return
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	info, err := d.AddBreakpoint(types.BreakpointRequest{Address: addr, Kind: types.KindSoftware})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("breakpoint %d at %s\n", info.Id, info.Address)
}

func monitorBreakpointClear(d *debugger.Debugger, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: bc <id>")
		return
	}
	n, err := parseUint64(args[0])
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if err := d.RemoveBreakpoint(types.BreakpointId(n)); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("cleared")
}

func monitorBreakpointList(d *debugger.Debugger) {
	bps, err := d.Breakpoints()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, bp := range bps {
		fmt.Printf("%d %s %s enabled=%v hits=%d\n", bp.Id, bp.Address, bp.Kind, bp.Enabled, bp.HitCount)
	}
}

func monitorThreads(d *debugger.Debugger) {
	threads, err := d.Threads()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, t := range threads {
		fmt.Printf("thread %d\n", t)
	}
}

func monitorContinue(d *debugger.Debugger) {
	var err error
	if d.IsStopped() {
		err = d.ResumeFromBreak()
	} else {
		err = d.Resume()
	}
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("continuing")
}

func monitorBacktrace(d *debugger.Debugger) {
	frames, err := d.StackTrace(0)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, fr := range frames {
		symbol := "??"
		if fr.Symbol != nil {
			symbol = fr.Symbol.Display()
		}
		fmt.Printf("#%-2d %s %s (%s)\n", fr.Index, fr.PC, symbol, fr.Status)
	}
}
