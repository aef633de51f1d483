// Copyright (c) 2017, Andrey Nering <andrey.nering@gmail.com>
// See LICENSE for licensing information

//go:build unix

package interp

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// reapChild arranges for cb to be called once proc exits, via the shared
// reaper goroutine.
func reapChild(rp *reaper, proc *os.Process, cb func(code int, err error)) {
	rp.trackPid(proc.Pid)
	rp.register(proc.Pid, cb)
}

// reaper is the single process-wide goroutine of spec component J that
// owns wait() for every child this engine spawns. It is created lazily on
// the first call to [reapChild] and lives for the lifetime of the process.
type reaper struct {
	mu          sync.Mutex
	cond        *sync.Cond
	callbacks   map[int]func(code int, err error)
	exited      map[int]unix.WaitStatus // pids that exited before a callback was registered
	outstanding int
}

var (
	globalReaper     *reaper
	globalReaperOnce sync.Once
)

func getReaper() *reaper {
	globalReaperOnce.Do(func() {
		globalReaper = &reaper{
			callbacks: map[int]func(code int, err error){},
			exited:    map[int]unix.WaitStatus{},
		}
		globalReaper.cond = sync.NewCond(&globalReaper.mu)
		go globalReaper.loop()
	})
	return globalReaper
}

// trackPid tells the reaper a new child exists to wait for. Call it right
// after the child is successfully spawned.
func (r *reaper) trackPid(pid int) {
	r.mu.Lock()
	r.outstanding++
	r.mu.Unlock()
	r.cond.Signal()
}

func (r *reaper) loop() {
	var ws unix.WaitStatus
	for {
		r.mu.Lock()
		for r.outstanding == 0 {
			r.cond.Wait()
		}
		r.mu.Unlock()

		pid, err := unix.Wait4(-1, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			// ECHILD or similar: nothing left to wait for right now.
			r.mu.Lock()
			r.outstanding = 0
			r.mu.Unlock()
			continue
		}
		r.mu.Lock()
		if r.outstanding > 0 {
			r.outstanding--
		}
		r.mu.Unlock()
		r.deliver(pid, ws)
	}
}

func (r *reaper) deliver(pid int, ws unix.WaitStatus) {
	r.mu.Lock()
	cb, ok := r.callbacks[pid]
	if ok {
		delete(r.callbacks, pid)
	} else {
		r.exited[pid] = ws
	}
	r.mu.Unlock()
	if ok {
		cb(exitCodeFromStatus(ws), nil)
	}
}

// register installs cb to be called once pid exits. Per §4.J, if pid has
// already exited and is sitting unclaimed, cb fires synchronously here
// instead of being lost.
func (r *reaper) register(pid int, cb func(code int, err error)) {
	r.mu.Lock()
	if ws, ok := r.exited[pid]; ok {
		delete(r.exited, pid)
		r.mu.Unlock()
		cb(exitCodeFromStatus(ws), nil)
		return
	}
	r.callbacks[pid] = cb
	r.mu.Unlock()
}

func exitCodeFromStatus(ws unix.WaitStatus) int {
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return 128 + int(ws.Signal())
	default:
		return 1
	}
}
