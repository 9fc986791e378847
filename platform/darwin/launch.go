//go:build darwin

package darwin

/*
#include <spawn.h>
#include <unistd.h>
#include <stdlib.h>
#include <string.h>

extern char **environ;

// POSIX_SPAWN_START_SUSPENDED is a Darwin extension: the child is
// created but its main thread never runs until something (here,
// task_resume after Attach) resumes it, giving the engine a clean
// "stopped at entry" starting point without racing the child's own
// startup code.
static int ferros_posix_spawn_suspended(pid_t *pid, const char *path, char *const argv[]) {
	posix_spawnattr_t attr;
	posix_spawnattr_init(&attr);
	posix_spawnattr_setflags(&attr, POSIX_SPAWN_START_SUSPENDED);
	int rc = posix_spawn(pid, path, NULL, &attr, argv, environ);
	posix_spawnattr_destroy(&attr);
	return rc;
}
*/
import "C"

import (
	"context"
	"os"
	"os/exec"
	"unsafe"

	"github.com/creack/pty"

	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/platform"
	"github.com/ferros-go/ferros/types"
)

// ptyStream adapts a pty's *os.File to platform.CapturedStream.
type ptyStream struct{ f *os.File }

func (s ptyStream) Read(p []byte) (int, error) { return s.f.Read(p) }
func (s ptyStream) Close() error                { return s.f.Close() }

// Launch spawns a program suspended and attaches to it.
//
// Two spawn strategies, chosen by whether output capture was requested:
//
//   - CaptureOutput: the child needs a controlling terminal for its
//     stdout/stderr to behave like an interactive program (line
//     buffering, readline, etc.), so it is started normally under a pty
//     via creack/pty, then immediately suspended with SuspendTask once
//     Attach has a task port. This briefly races the child's own
//     startup code; for a launch-for-debugging workflow this window is
//     negligible compared to always stopping at entry.
//   - no capture: posix_spawn with POSIX_SPAWN_START_SUSPENDED gives a
//     true stop-at-entry launch with no race.
func (d *Debuggee) Launch(ctx context.Context, opts platform.LaunchOptions) (platform.LaunchResult, error) {
	if opts.CaptureOutput {
		return d.launchWithPty(ctx, opts)
	}
	return d.launchSuspended(opts)
}

func (d *Debuggee) launchSuspended(opts platform.LaunchOptions) (platform.LaunchResult, error) {
	cPath := C.CString(opts.Program)
	defer C.free(unsafe.Pointer(cPath))

	argv := make([]*C.char, 0, len(opts.Args)+2)
	cArg0 := C.CString(opts.Program)
	defer C.free(unsafe.Pointer(cArg0))
	argv = append(argv, cArg0)
	cArgs := make([]*C.char, len(opts.Args))
	for i, a := range opts.Args {
		cArgs[i] = C.CString(a)
		defer C.free(unsafe.Pointer(cArgs[i]))
		argv = append(argv, cArgs[i])
	}
	argv = append(argv, nil)

	var pid C.pid_t
	rc := C.ferros_posix_spawn_suspended(&pid, cPath, (*C.char)(unsafe.Pointer(&argv[0])))
	if rc != 0 {
		return platform.LaunchResult{}, ferrerr.AttachFailed("posix_spawn: " + C.GoString(C.strerror(C.int(rc))))
	}
	return platform.LaunchResult{Pid: types.ProcessId(pid)}, nil
}

func (d *Debuggee) launchWithPty(ctx context.Context, opts platform.LaunchOptions) (platform.LaunchResult, error) {
	cmd := exec.CommandContext(ctx, opts.Program, opts.Args...)
	f, err := pty.Start(cmd)
	if err != nil {
		return platform.LaunchResult{}, ferrerr.Io(err)
	}
	stream := platform.CapturedStream(ptyStream{f: f})
	return platform.LaunchResult{
		Pid:    types.ProcessId(cmd.Process.Pid),
		Stdout: stream,
		Stderr: stream, // pty multiplexes both onto one fd, matching a real terminal
	}, nil
}
