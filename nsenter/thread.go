// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nsenter

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// LockThread locks the calling goroutine to its current OS thread and then
// gives the thread its own filesystem information (root, working directory,
// umask), so that the thread can later switch mount namespaces without
// affecting any other thread of this process.
//
// There is no unlocking: once a thread has been switched into other
// namespaces it must never be returned to the Go runtime's thread pool.
// Simply let the goroutine terminate while still locked, the Go runtime then
// terminates the thread as well.
func LockThread() error {
	runtime.LockOSThread()
	if err := unix.Unshare(unix.CLONE_FS); err != nil {
		return fmt.Errorf("cannot unshare filesystem attributes of thread, reason: %w", err)
	}
	return nil
}
