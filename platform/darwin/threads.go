//go:build darwin

package darwin

/*
#include <mach/mach.h>
*/
import "C"

import (
	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/types"
)

// Threads implements the enumeration half of the thread surface:
// acquire a fresh list of thread handles from the kernel. The thread
// manager (ferros/threads) is responsible for releasing the previous
// enumeration's handles before calling this again.
func (d *Debuggee) Threads() ([]types.ThreadId, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.task == 0 {
		return nil, ferrerr.NotAttachedErr()
	}
	acts, kr := taskThreads(d.task)
	if kr != kernSuccess {
		return nil, ferrerr.Platform(&platformErr{kr: kr, op: "task_threads"})
	}
	out := make([]types.ThreadId, len(acts))
	for i, a := range acts {
		out[i] = types.ThreadId(a)
	}
	return out, nil
}

// ReleaseThread returns one thread act port obtained from Threads back
// to the kernel. Mach ports obtained from task_threads are send rights
// owned by the caller and must be deallocated individually.
func (d *Debuggee) ReleaseThread(t types.ThreadId) error {
	if kr := portDeallocate(machTaskSelf(), C.mach_port_t(t)); kr != kernSuccess {
		return ferrerr.Platform(&platformErr{kr: kr, op: "mach_port_deallocate(thread)"})
	}
	return nil
}
