//go:build linux

package engine

import "golang.org/x/sys/unix"

// pinThread binds the calling thread to a single CPU core. Pair it with
// runtime.LockOSThread so the goroutine stays on the pinned thread.
func pinThread(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}
