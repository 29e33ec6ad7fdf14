// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"fmt"
	"syscall"
	"time"

	"github.com/thediveo/lxkns/model"
)

// CrawlTimeoutError is returned when a Func did not return its result before
// the deadline; the worker and executor processes have then been killed.
type CrawlTimeoutError struct {
	PID     model.PIDType
	Func    string
	Timeout time.Duration
}

func (e *CrawlTimeoutError) Error() string {
	return fmt.Sprintf("crawling %s in process with PID %d timed out after %s",
		e.Func, e.PID, e.Timeout)
}

// CrawlError is returned when an invocation failed without a Func error,
// such as when the worker or executor process crashed.
type CrawlError struct {
	Msg string
	Err error
}

func (e *CrawlError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *CrawlError) Unwrap() error { return e.Err }

// CollectorError is an error returned by a Func (or a panic in it) inside
// the executor process, recreated in the supervisor process. It unwraps to a
// recreated error of the original type if this type has been registered
// using [RegisterErrorType], as well as to the system error number, if the
// original error carried one.
type CollectorError struct {
	Type    string // Go type of the original error, such as "*fs.PathError".
	Message string
	Trace   string // stack trace, if available.
	Panic   bool   // true if the Func panicked.

	errno    syscall.Errno
	original error
}

func (e *CollectorError) Error() string {
	if e.Panic {
		return "collector panicked: " + e.Message
	}
	return e.Message
}

func (e *CollectorError) Unwrap() []error {
	var errs []error
	if e.original != nil {
		errs = append(errs, e.original)
	}
	if e.errno != 0 {
		errs = append(errs, e.errno)
	}
	return errs
}

// Errno returns the system error number of the original error, or 0.
func (e *CollectorError) Errno() syscall.Errno { return e.errno }
