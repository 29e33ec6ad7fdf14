// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nsenter

import (
	"errors"
	"os"
	"slices"

	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/model"
	"golang.org/x/sys/unix"
)

// Logging is suspended while a ProcessContext is attached, as otherwise a log
// file rotation could create files relative to the wrong mount namespace.
// Packages wiring up logging set these hooks; by default they are no-ops.
var (
	SuspendLogging = func() {}
	ResumeLogging  = func() {}
)

type state int

const (
	constructed state = iota
	attached
	detached
)

// ProcessContext couples the namespaces of the calling OS thread (“host”)
// with the namespaces of a target process for a single attach/detach cycle.
// A ProcessContext is single-use: after Detach it cannot be attached again.
type ProcessContext struct {
	pid       model.PIDType
	kinds     []Kind
	tolerated []Kind
	host      HandleSet
	target    HandleSet
	hostcwd   *os.File // working directory before attaching, if attached.
	state     state
}

// ContextOption configures a ProcessContext when creating it.
type ContextOption func(*ProcessContext)

// WithTolerated sets the namespace kinds for which failing to attach only
// gets logged instead of failing the attachment. Without this option only
// failing to attach to a user namespace is tolerated, as many hosts don't
// have user namespace remapping in place. Pass no kinds at all to make every
// attachment failure fatal.
func WithTolerated(kinds ...Kind) ContextOption {
	return func(c *ProcessContext) {
		c.tolerated = slices.Clone(kinds)
	}
}

// NewProcessContext opens the namespaces of the specified kinds both for
// the calling thread and the process with the specified PID. It returns a
// *[NamespaceOpenError] in case any of the namespaces cannot be opened, in
// which case no handles are left open.
//
// The calling goroutine must already be locked to its OS thread, see
// [LockThread].
func NewProcessContext(pid model.PIDType, kinds []Kind, opts ...ContextOption) (*ProcessContext, error) {
	c := &ProcessContext{
		pid:       pid,
		kinds:     slices.Clone(kinds),
		tolerated: []Kind{User},
	}
	for _, opt := range opts {
		opt(c)
	}
	host, err := OpenThreadHandles(c.kinds)
	if err != nil {
		return nil, err
	}
	target, err := OpenHandles(pid, c.kinds)
	if err != nil {
		host.Close()
		return nil, err
	}
	c.host = host
	c.target = target
	return c, nil
}

// PID returns the PID of the target process.
func (c *ProcessContext) PID() model.PIDType { return c.pid }

// Kinds returns the namespace kinds this context switches, in switching
// order.
func (c *ProcessContext) Kinds() []Kind { return slices.Clone(c.kinds) }

// Attach switches the calling OS thread into the target namespaces, in the
// order the namespace kinds were specified. The thread's current working
// directory is remembered so that Detach can restore it.
//
// Logging gets suspended before the first switch and resumes only in
// Detach. On failure, Attach returns a *[NamespaceAttachError] and leaves
// logging suspended: the caller is expected to report the error and then to
// terminate its process without further logging. Attaching namespaces of
// tolerated kinds may fail without failing Attach.
func (c *ProcessContext) Attach() error {
	if c.state != constructed {
		return errors.New("process context already used")
	}
	cwd, err := os.Open(".")
	if err != nil {
		return &NamespaceAttachError{PID: c.pid, Kind: Mnt, Err: unwrapPathError(err)}
	}
	c.hostcwd = cwd
	c.state = attached
	SuspendLogging()
	for _, kind := range c.kinds {
		if err := unix.Setns(int(c.target[kind].Fd()), kind.CloneFlag()); err != nil {
			if slices.Contains(c.tolerated, kind) {
				log.Warnf("ignoring failure to attach to %s namespace of PID %d, reason: %s",
					kind, c.pid, err.Error())
				continue
			}
			return &NamespaceAttachError{PID: c.pid, Kind: kind, Err: err}
		}
	}
	return nil
}

// Detach switches the calling OS thread back into its original namespaces,
// restores the original working directory, closes all namespace handles and
// finally resumes logging. Detach never fails: problems get logged, as there
// is nothing sensible a caller could do about them anyway. Detach can be
// called on any exit path, even if Attach wasn't called or failed.
func (c *ProcessContext) Detach() {
	if c.state == detached {
		return
	}
	wasAttached := c.state == attached
	c.state = detached
	if wasAttached {
		// Switch back in reverse order, so that we leave the mount namespace
		// first and the user namespace last.
		for idx := len(c.kinds) - 1; idx >= 0; idx-- {
			kind := c.kinds[idx]
			if err := unix.Setns(int(c.host[kind].Fd()), kind.CloneFlag()); err != nil &&
				!slices.Contains(c.tolerated, kind) {
				log.Errorf("cannot switch back into host %s namespace, reason: %s",
					kind, err.Error())
			}
		}
		// After switching mount namespaces, the working directory of the
		// thread is the root of the (re)joined mount namespace, so we need to
		// get back to where we came from.
		if err := unix.Fchdir(int(c.hostcwd.Fd())); err != nil {
			log.Errorf("cannot restore working directory %s, reason: %s",
				c.hostcwd.Name(), err.Error())
		}
	}
	if c.hostcwd != nil {
		_ = c.hostcwd.Close()
		c.hostcwd = nil
	}
	c.target.Close()
	c.host.Close()
	if wasAttached {
		ResumeLogging()
	}
}
