// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/siemens/nscrawler/internal/logsink"
	"github.com/thediveo/lxkns/log"
	"golang.org/x/sys/unix"
)

func executorMain() {
	os.Exit(runExecutor(os.Stdin, os.NewFile(resultFd, "result")))
}

// runExecutor runs inside the target namespaces, calls the requested Func
// and sends back either its materialized result or its error.
func runExecutor(in io.Reader, result io.Writer) int {
	_ = unix.Prctl(unix.PR_SET_PDEATHSIG, uintptr(unix.SIGKILL), 0, 0, 0)
	// We were started with our current working directory somewhere in the
	// host's mount namespace.
	if err := unix.Chdir("/"); err != nil {
		log.Warnf("executor cannot change into root directory: %s", err.Error())
	}
	unix.CloseOnExec(resultFd)

	var req request
	if err := newDecoder(in).Decode(&req); err != nil {
		sendEnvelope(result, envelope{Err: toWire(&CrawlError{Msg: "cannot read executor request", Err: err})})
		return 1
	}
	_ = logsink.Setup(logsink.Config{Level: req.LogLevel})
	env := execute(&req)
	sendEnvelope(result, env)
	return 0
}

// execute calls the requested Func, recovering from panics, and returns the
// result envelope.
func execute(req *request) (env envelope) {
	fn, ok := lookup(req.Func)
	if !ok {
		return envelope{Err: toWire(&CrawlError{Msg: fmt.Sprintf("unknown Func %q", req.Func)})}
	}
	ctx, cancel := context.WithDeadline(context.Background(), time.Unix(0, req.Deadline))
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			env = envelope{Err: panicToWire(r, debug.Stack())}
		}
	}()
	value, err := fn(ctx, Args(req.Args))
	if err == nil {
		value, err = materialize(value)
	}
	if err != nil {
		return envelope{Err: toWire(err)}
	}
	raw, err := marshal(value)
	if err != nil {
		return envelope{Err: toWire(&CrawlError{Msg: "cannot encode result", Err: err})}
	}
	return envelope{Value: raw}
}
