//go:build darwin

package main

import (
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/platform/darwin"
)

func newPlatformDebuggee() platform.Debuggee {
	return darwin.New()
}
