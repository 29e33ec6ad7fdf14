// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/fxamacker/cbor/v2"
	pkgerrors "github.com/pkg/errors"
	"github.com/siemens/nscrawler/nsenter"
	"github.com/thediveo/lxkns/model"
)

// request tells a worker (and then its executor) what to run where.
type request struct {
	ID        string            `cbor:"1,keyasint"`
	PID       model.PIDType     `cbor:"2,keyasint"`
	Kinds     []nsenter.Kind    `cbor:"3,keyasint"`
	Tolerated []nsenter.Kind    `cbor:"4,keyasint"`
	Func      string            `cbor:"5,keyasint"`
	Args      []cbor.RawMessage `cbor:"6,keyasint"`
	Deadline  int64             `cbor:"7,keyasint"` // Unix nanoseconds.
	LogLevel  string            `cbor:"8,keyasint,omitempty"`
}

// envelope is the single message sent back over the result channel: either
// a value or an error, never both.
type envelope struct {
	Value cbor.RawMessage `cbor:"1,keyasint,omitempty"`
	Err   *wireError      `cbor:"2,keyasint,omitempty"`
}

type errorKind uint8

const (
	userErrorKind errorKind = iota
	namespaceOpenErrorKind
	namespaceAttachErrorKind
	crawlErrorKind
	panicErrorKind
)

// wireError is the serializable form of errors crossing process boundaries.
type wireError struct {
	Kind    errorKind     `cbor:"1,keyasint"`
	Type    string        `cbor:"2,keyasint,omitempty"`
	Message string        `cbor:"3,keyasint"`
	Trace   string        `cbor:"4,keyasint,omitempty"`
	Errno   uint64        `cbor:"5,keyasint,omitempty"`
	NSKind  nsenter.Kind  `cbor:"6,keyasint,omitempty"`
	PID     model.PIDType `cbor:"7,keyasint,omitempty"`
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// toWire converts an error into its serializable form.
func toWire(err error) *wireError {
	var openErr *nsenter.NamespaceOpenError
	if errors.As(err, &openErr) {
		return &wireError{
			Kind:    namespaceOpenErrorKind,
			Type:    fmt.Sprintf("%T", openErr),
			Message: causeMessage(openErr.Err),
			Errno:   errnoOf(openErr.Err),
			NSKind:  openErr.Kind,
			PID:     openErr.PID,
		}
	}
	var attachErr *nsenter.NamespaceAttachError
	if errors.As(err, &attachErr) {
		return &wireError{
			Kind:    namespaceAttachErrorKind,
			Type:    fmt.Sprintf("%T", attachErr),
			Message: causeMessage(attachErr.Err),
			Errno:   errnoOf(attachErr.Err),
			NSKind:  attachErr.Kind,
			PID:     attachErr.PID,
		}
	}
	var crawlErr *CrawlError
	if errors.As(err, &crawlErr) {
		return &wireError{
			Kind:    crawlErrorKind,
			Type:    fmt.Sprintf("%T", crawlErr),
			Message: crawlErr.Error(),
		}
	}
	we := &wireError{
		Kind:    userErrorKind,
		Type:    errorTypeOf(err),
		Message: err.Error(),
		Errno:   errnoOf(err),
	}
	var st stackTracer
	if errors.As(err, &st) {
		we.Trace = fmt.Sprintf("%+v", st.StackTrace())
	}
	return we
}

// panicToWire converts a recovered panic value into its serializable form.
func panicToWire(v any, stack []byte) *wireError {
	we := &wireError{
		Kind:    panicErrorKind,
		Type:    fmt.Sprintf("%T", v),
		Message: fmt.Sprint(v),
		Trace:   string(stack),
	}
	if err, ok := v.(error); ok {
		we.Errno = errnoOf(err)
	}
	return we
}

// fromWire recreates an error from its serializable form.
func fromWire(we *wireError) error {
	switch we.Kind {
	case namespaceOpenErrorKind:
		return &nsenter.NamespaceOpenError{PID: we.PID, Kind: we.NSKind, Err: we.cause()}
	case namespaceAttachErrorKind:
		return &nsenter.NamespaceAttachError{PID: we.PID, Kind: we.NSKind, Err: we.cause()}
	case crawlErrorKind:
		return &CrawlError{Msg: we.Message}
	}
	cerr := &CollectorError{
		Type:    we.Type,
		Message: we.Message,
		Trace:   we.Trace,
		Panic:   we.Kind == panicErrorKind,
		errno:   syscall.Errno(we.Errno),
	}
	if factory := errorFactory(we.Type); factory != nil {
		cerr.original = factory(we.Message)
	}
	return cerr
}

func (we *wireError) cause() error {
	if we.Errno != 0 {
		return syscall.Errno(we.Errno)
	}
	return errors.New(we.Message)
}

// errorTypeOf returns the type name of the first error in the chain of err
// that has a registered factory, or otherwise the type name of err itself.
func errorTypeOf(err error) string {
	typ := fmt.Sprintf("%T", err)
	for e := range errorChain(err) {
		if t := fmt.Sprintf("%T", e); errorFactory(t) != nil {
			return t
		}
	}
	return typ
}

// errorChain iterates depth-first over err and all errors it wraps.
func errorChain(err error) func(yield func(error) bool) {
	return func(yield func(error) bool) {
		var walk func(error) bool
		walk = func(e error) bool {
			if e == nil {
				return true
			}
			if !yield(e) {
				return false
			}
			switch u := e.(type) {
			case interface{ Unwrap() error }:
				return walk(u.Unwrap())
			case interface{ Unwrap() []error }:
				for _, ee := range u.Unwrap() {
					if !walk(ee) {
						return false
					}
				}
			}
			return true
		}
		walk(err)
	}
}

func errnoOf(err error) uint64 {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return uint64(errno)
	}
	return 0
}

func causeMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
