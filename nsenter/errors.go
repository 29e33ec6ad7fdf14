// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nsenter

import (
	"fmt"

	"github.com/thediveo/lxkns/model"
)

// NamespaceOpenError reports that a namespace handle of a process could not
// be opened, such as when the process is already gone, access is denied, or
// the kernel doesn't support the namespace kind.
type NamespaceOpenError struct {
	PID  model.PIDType
	Kind Kind
	Err  error
}

func (e *NamespaceOpenError) Error() string {
	return fmt.Sprintf("cannot open %s namespace of process with PID %d, reason: %s",
		e.Kind, e.PID, errString(e.Err))
}

func (e *NamespaceOpenError) Unwrap() error { return e.Err }

// NamespaceAttachError reports that switching into a namespace of a process
// failed, most probably because of insufficient privileges.
type NamespaceAttachError struct {
	PID  model.PIDType
	Kind Kind
	Err  error
}

func (e *NamespaceAttachError) Error() string {
	return fmt.Sprintf("cannot attach to %s namespace of process with PID %d, reason: %s",
		e.Kind, e.PID, errString(e.Err))
}

func (e *NamespaceAttachError) Unwrap() error { return e.Err }

func errString(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}
