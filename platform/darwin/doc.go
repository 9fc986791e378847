// Package darwin implements platform.Debuggee on top of Mach task and
// thread ports, grounded on the ferros-core Rust implementation this
// engine was ported from (crates/ferros-core/src/platform/macos).
//
//go:build darwin

package darwin
