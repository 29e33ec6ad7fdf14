// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/thediveo/go-plugger/v3"
)

// Func is a function to be run inside the namespaces of some target process.
// As Funcs run in separate processes, they are called by their registered
// names and receive their arguments in encoded form; see [Args]. The
// returned value must be CBOR-encodable, unless it is a lazy sequence
// (iter.Seq, iter.Seq2, receive channel, or [Materializer]) which then gets
// drained into a slice before returning it.
type Func func(ctx context.Context, args Args) (any, error)

// Register a Func under the specified name. Register is intended to be
// called from init functions, so that re-executed worker and executor
// processes know about the same Funcs as the supervisor process. Registering
// the same name twice panics.
func Register(name string, fn Func) {
	if name == "" || fn == nil {
		panic("nscrawler: Register requires a name and a Func")
	}
	if _, ok := lookup(name); ok {
		panic(fmt.Sprintf("nscrawler: Func %q already registered", name))
	}
	plugger.Group[Func]().Register(fn, plugger.WithPlugin(name))
}

// Funcs returns the sorted names of all registered Funcs.
func Funcs() []string {
	names := plugger.Group[Func]().Plugins()
	sort.Strings(names)
	return names
}

func lookup(name string) (Func, bool) {
	for _, fn := range plugger.Group[Func]().PluginsSymbols() {
		if fn.Plugin == name {
			return fn.S, true
		}
	}
	return nil, false
}

// Args are the encoded positional arguments passed to a Func.
type Args []cbor.RawMessage

// Len returns the number of arguments.
func (a Args) Len() int { return len(a) }

// Decode the i-th argument into the value pointed to by v.
func (a Args) Decode(i int, v any) error {
	if i < 0 || i >= len(a) {
		return fmt.Errorf("argument #%d out of range, only %d arguments", i, len(a))
	}
	if err := unmarshal(a[i], v); err != nil {
		return fmt.Errorf("cannot decode argument #%d, reason: %w", i, err)
	}
	return nil
}

func encodeArgs(args []any) (Args, error) {
	encoded := make(Args, 0, len(args))
	for idx, arg := range args {
		raw, err := marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot encode argument #%d, reason: %w", idx, err)
		}
		encoded = append(encoded, raw)
	}
	return encoded, nil
}

// Result is the encoded value returned by a Func.
type Result struct {
	raw cbor.RawMessage
}

// NewResult returns the Result for v, as if v had been returned by a Func.
// This is useful for substituting supervisors in tests.
func NewResult(v any) (Result, error) {
	raw, err := marshal(v)
	if err != nil {
		return Result{}, err
	}
	return Result{raw: raw}, nil
}

// Decode the result into the value pointed to by v.
func (r Result) Decode(v any) error {
	if len(r.raw) == 0 {
		return nil
	}
	return unmarshal(r.raw, v)
}

// Raw returns the CBOR-encoded result.
func (r Result) Raw() []byte { return r.raw }

// Any returns the result decoded into generic Go values, with maps being
// string-keyed.
func (r Result) Any() (any, error) {
	var v any
	err := r.Decode(&v)
	return v, err
}

var (
	errTypesMu sync.RWMutex
	errTypes   = map[string]func(msg string) error{}
)

// RegisterErrorType registers a factory for the error type E, so that errors
// of this type returned by Funcs can be recreated in the supervisor process
// and then found using errors.As on the [CollectorError].
func RegisterErrorType[E error](factory func(msg string) E) {
	var zero E
	typ := fmt.Sprintf("%T", zero)
	errTypesMu.Lock()
	defer errTypesMu.Unlock()
	errTypes[typ] = func(msg string) error { return factory(msg) }
}

func errorFactory(typ string) func(msg string) error {
	errTypesMu.RLock()
	defer errTypesMu.RUnlock()
	return errTypes[typ]
}
