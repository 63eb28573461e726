//go:build !linux

package engine

import "errors"

// pinThread is unsupported off Linux. Pin failure is non-fatal: the
// supervisor logs and continues unpinned.
func pinThread(core int) error {
	return errors.New("thread pinning not supported on this platform")
}
