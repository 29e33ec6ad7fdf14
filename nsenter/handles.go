// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nsenter

import (
	"os"
	"strconv"

	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/model"
	"golang.org/x/sys/unix"
)

// HandleSet maps namespace kinds to open namespace handles, that is, open
// files referencing “/proc/[PID]/ns/[KIND]” elements. A HandleSet is
// exclusively owned by the code that opened it.
type HandleSet map[Kind]*os.File

// OpenHandles opens the namespaces of the specified kinds for the process
// with the specified PID. On failure, it returns a *[NamespaceOpenError]
// after having closed all handles it opened so far, so the caller never has
// to clean up after a failed open.
func OpenHandles(pid model.PIDType, kinds []Kind) (HandleSet, error) {
	return openHandles(pid, "/proc/"+strconv.FormatInt(int64(pid), 10)+"/ns/", kinds)
}

// OpenThreadHandles opens the namespaces of the specified kinds the calling
// OS thread is currently attached to. The caller should have locked its
// goroutine to the thread beforehand, otherwise the handles might reference
// the namespaces of some other thread of this process.
func OpenThreadHandles(kinds []Kind) (HandleSet, error) {
	pid := os.Getpid()
	return openHandles(model.PIDType(pid),
		"/proc/"+strconv.Itoa(pid)+"/task/"+strconv.Itoa(unix.Gettid())+"/ns/",
		kinds)
}

func openHandles(pid model.PIDType, nsdir string, kinds []Kind) (HandleSet, error) {
	handles := make(HandleSet, len(kinds))
	for _, kind := range kinds {
		if !kind.Valid() {
			handles.Close()
			return nil, &NamespaceOpenError{PID: pid, Kind: kind, Err: unix.EINVAL}
		}
		if _, ok := handles[kind]; ok {
			continue
		}
		f, err := os.OpenFile(nsdir+string(kind), os.O_RDONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			handles.Close()
			return nil, &NamespaceOpenError{PID: pid, Kind: kind, Err: unwrapPathError(err)}
		}
		handles[kind] = f
	}
	return handles, nil
}

// Close closes all namespace handles in this set. Failing to close a
// handle only gets logged, as Close gets called from cleanup and error paths
// that must not fail themselves. Close can be called multiple times.
func (h HandleSet) Close() {
	for kind, f := range h {
		if err := f.Close(); err != nil {
			log.Warnf("cannot close %s namespace handle %s, reason: %s",
				kind, f.Name(), err.Error())
		}
		delete(h, kind)
	}
}

// unwrapPathError returns the underlying syscall error of a *os.PathError,
// as the path is reported separately anyway.
func unwrapPathError(err error) error {
	if perr, ok := err.(*os.PathError); ok {
		return perr.Err
	}
	return err
}
