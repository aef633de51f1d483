// Copyright (c) 2017, Andrey Nering <andrey.nering@gmail.com>
// See LICENSE for licensing information

//go:build !unix

package interp

import "os"

// On non-Unix platforms there is no wait4(-1, ...) primitive to centralize
// behind a single reaper goroutine, so each child is waited on by its own
// short-lived goroutine instead. The externally observable contract (one
// callback invocation per pid, safe to register after the child already
// exited) is preserved; only the "one process-wide thread" implementation
// detail of §4.J is not.
type reaper struct{}

func getReaper() *reaper { return &reaper{} }

func (r *reaper) trackPid(pid int) {}

func (r *reaper) register(pid int, cb func(code int, err error)) {}

// reapChild waits on proc in its own goroutine, since this platform has no
// wait4(-1, ...) primitive to centralize behind a single reaper goroutine.
func reapChild(rp *reaper, proc *os.Process, cb func(code int, err error)) {
	go func() {
		state, err := proc.Wait()
		if err != nil {
			cb(1, err)
			return
		}
		cb(state.ExitCode(), nil)
	}()
}
