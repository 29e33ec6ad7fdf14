// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/siemens/nscrawler/internal/logsink"
	"github.com/siemens/nscrawler/nsenter"
	"github.com/thediveo/lxkns/log"
	"golang.org/x/sys/unix"
)

func workerMain() {
	os.Exit(runWorker(os.Stdin, os.NewFile(resultFd, "result")))
}

// runWorker attaches the worker's main OS thread to the namespaces of the
// target process and then starts an executor process from this attached
// thread, so that the executor lives completely inside the target
// namespaces. After the executor has terminated, the worker switches back
// and returns. Only when the executor cannot be started does the worker
// itself send an envelope over the result channel.
func runWorker(in io.Reader, result *os.File) int {
	defer result.Close()

	var req request
	if err := newDecoder(in).Decode(&req); err != nil {
		sendEnvelope(result, envelope{Err: toWire(&CrawlError{Msg: "cannot read worker request", Err: err})})
		return 1
	}
	_ = logsink.Setup(logsink.Config{Level: req.LogLevel})

	if err := nsenter.LockThread(); err != nil {
		sendEnvelope(result, envelope{Err: toWire(&CrawlError{Msg: "cannot prepare worker thread", Err: err})})
		return 1
	}
	// The executor binary is started via a path relative to the host's root
	// directory, as absolute paths are resolved in the target's mount
	// namespace after attaching.
	hostRoot, err := os.Open("/")
	if err != nil {
		sendEnvelope(result, envelope{Err: toWire(&CrawlError{Msg: "cannot open host root", Err: err})})
		return 1
	}
	defer hostRoot.Close()
	exe, err := os.Executable()
	if err != nil {
		sendEnvelope(result, envelope{Err: toWire(&CrawlError{Msg: "cannot determine executable", Err: err})})
		return 1
	}

	pctx, err := nsenter.NewProcessContext(req.PID, req.Kinds, nsenter.WithTolerated(req.Tolerated...))
	if err != nil {
		sendEnvelope(result, envelope{Err: toWire(err)})
		return 1
	}
	if err := pctx.Attach(); err != nil {
		// The process exit cleans up.
		sendEnvelope(result, envelope{Err: toWire(err)})
		return 1
	}
	defer pctx.Detach()

	reqb, err := marshal(&req)
	if err != nil {
		sendEnvelope(result, envelope{Err: toWire(&CrawlError{Msg: "cannot encode executor request", Err: err})})
		return 1
	}
	if err := unix.Fchdir(int(hostRoot.Fd())); err != nil {
		sendEnvelope(result, envelope{Err: toWire(&CrawlError{Msg: "cannot change into host root", Err: err})})
		return 1
	}
	cmd := &exec.Cmd{
		Path:       strings.TrimPrefix(exe, "/"),
		Args:       []string{executorAction},
		Stdin:      bytes.NewReader(reqb),
		Stdout:     os.Stderr,
		Stderr:     os.Stderr,
		ExtraFiles: []*os.File{result},
		// No Pdeathsig here: the executor's parent is outside its PID
		// namespace when switching PID namespaces, so getppid returns 0 and
		// the fork path would kill the executor right away. The executor
		// sets its parent death signal itself.
	}
	if err := cmd.Start(); err != nil {
		sendEnvelope(result, envelope{Err: toWire(&CrawlError{
			Msg: fmt.Sprintf("cannot start executor %s (statically linked binary required)", exe),
			Err: err,
		})})
		return 1
	}
	_ = result.Close()
	if err := cmd.Wait(); err != nil {
		log.Debugf("executor of invocation %s for PID %d terminated: %s", req.ID, req.PID, err.Error())
	}
	return 0
}

func sendEnvelope(w io.Writer, env envelope) {
	if err := newEncoder(w).Encode(&env); err != nil {
		log.Errorf("cannot send result envelope: %s", err.Error())
	}
}
