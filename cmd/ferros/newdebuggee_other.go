//go:build !darwin

package main

import (
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/platform/linux"
)

func newPlatformDebuggee() platform.Debuggee {
	return linux.New()
}
