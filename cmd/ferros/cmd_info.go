package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const version = "0.1.0"

// newInfoCmd prints build/runtime info, scoped to a debugger CLI's own
// diagnostics rather than compiled feature flags.
func newInfoCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print ferros version and environment info",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("ferros %s\n", version)
			fmt.Printf("  go version: %s\n", runtime.Version())
			fmt.Printf("  os/arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Printf("  log format: %s\n", s.cfg.Format)
			fmt.Printf("  log filter: %s\n", displayOrDefault(s.cfg.LevelFilter, "(default)"))

			if isatty.IsTerminal(os.Stdout.Fd()) {
				if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
					fmt.Printf("  terminal:   %dx%d\n", w, h)
				}
			}
			return nil
		},
	}
}

func displayOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
