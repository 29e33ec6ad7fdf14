// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/moby/sys/reexec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/siemens/nscrawler/nsenter"
	"github.com/sirupsen/logrus"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/model"
	"golang.org/x/sys/unix"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultJoinTimeout = 1 * time.Second
	defaultPipeSize    = 1024 * 1024
	fallbackPipeSize   = 64 * 1024
)

// Supervisor runs registered Funcs inside the namespaces of target
// processes, each invocation in its own pair of worker and executor
// processes, enforcing deadlines. A Supervisor additionally launches and
// keeps track of probe processes; see [Supervisor.Spawn].
//
// A Supervisor is safe for concurrent use; concurrent invocations don't
// share any state except for the one-time priming.
type Supervisor struct {
	timeout     time.Duration
	joinTimeout time.Duration
	priming     bool
	tolerated   []nsenter.Kind
	pipeSize    int
	registerer  prometheus.Registerer
	metrics     *metrics

	primeOnce sync.Once

	mu     sync.Mutex
	probes []*Probe
	closed bool
}

// New returns a new Supervisor, configured using the specified options.
func New(opts ...NewOption) (*Supervisor, error) {
	s := &Supervisor{
		priming:   true,
		tolerated: []nsenter.Kind{nsenter.User},
		pipeSize:  defaultPipeSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.joinTimeout <= 0 {
		s.joinTimeout = defaultJoinTimeout
	}
	m, err := newMetrics(s.registerer)
	if err != nil {
		return nil, fmt.Errorf("cannot register supervisor metrics, reason: %w", err)
	}
	s.metrics = m
	return s, nil
}

// received is what the result channel reader got.
type received struct {
	env envelope
	err error
}

// Run the Func registered under the name fn with the specified arguments
// inside the namespaces of the kinds specified for the process with the
// specified PID. Namespaces are switched into in the order specified.
//
// If ctx carries no deadline, the Supervisor's default timeout applies. When
// the deadline passes before a result has arrived, Run kills the worker and
// executor processes and returns a [*CrawlTimeoutError]. Failing to open or
// switch into a namespace returns a [*nsenter.NamespaceOpenError] or
// [*nsenter.NamespaceAttachError] respectively, and an error returned by the
// Func a [*CollectorError]. Any other failure returns a [*CrawlError].
func (s *Supervisor) Run(ctx context.Context, pid model.PIDType, kinds []nsenter.Kind, fn string, args ...any) (Result, error) {
	start := time.Now()
	if _, ok := lookup(fn); !ok {
		return Result{}, fmt.Errorf("unknown Func %q", fn)
	}
	for _, kind := range kinds {
		if !kind.Valid() {
			return Result{}, fmt.Errorf("unsupported namespace kind %q", kind)
		}
	}
	encodedArgs, err := encodeArgs(args)
	if err != nil {
		return Result{}, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = start.Add(s.timeout)
	}
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	s.prime()

	req := request{
		ID:        uuid.NewString(),
		PID:       pid,
		Kinds:     kinds,
		Tolerated: s.tolerated,
		Func:      fn,
		Args:      encodedArgs,
		Deadline:  deadline.UnixNano(),
		LogLevel:  logrus.GetLevel().String(),
	}
	reqb, err := marshal(&req)
	if err != nil {
		return Result{}, &CrawlError{Msg: "cannot encode worker request", Err: err}
	}
	r, w, err := s.resultChannel()
	if err != nil {
		return Result{}, &CrawlError{Msg: "cannot create result channel", Err: err}
	}
	defer r.Close()

	cmd := reexec.Command(workerAction)
	cmd.Stdin = bytes.NewReader(reqb)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{w}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	err = cmd.Start()
	_ = w.Close()
	if err != nil {
		s.metrics.observe(outcomeCrash, start)
		return Result{}, &CrawlError{Msg: "cannot start worker", Err: err}
	}
	pgid := cmd.Process.Pid
	log.Debugf("invocation %s: worker %d runs %s in %v namespaces of PID %d",
		req.ID, pgid, fn, kinds, pid)
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	results := make(chan received, 1)
	go func() {
		var env envelope
		err := newDecoder(r).Decode(&env)
		results <- received{env: env, err: err}
	}()

	var result Result
	var outcome string
	select {
	case recv := <-results:
		result, outcome, err = unpack(recv)
	case <-ctx.Done():
		s.kill(pgid)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = outcomeTimeout
			err = &CrawlTimeoutError{PID: pid, Func: fn, Timeout: deadline.Sub(start)}
		} else {
			outcome = outcomeCancelled
			err = &CrawlError{Msg: "crawl cancelled", Err: ctx.Err()}
		}
	}
	s.join(req.ID, pgid, exited)
	s.metrics.observe(outcome, start)
	return result, err
}

// RunAs runs the Func registered as fn like [Supervisor.Run] does, and
// decodes its result into a value of type T.
func RunAs[T any](ctx context.Context, s *Supervisor, pid model.PIDType, kinds []nsenter.Kind, fn string, args ...any) (T, error) {
	var v T
	result, err := s.Run(ctx, pid, kinds, fn, args...)
	if err != nil {
		return v, err
	}
	if err := result.Decode(&v); err != nil {
		return v, fmt.Errorf("cannot decode result of %s, reason: %w", fn, err)
	}
	return v, nil
}

func unpack(recv received) (Result, string, error) {
	if recv.err != nil {
		if errors.Is(recv.err, io.EOF) {
			return Result{}, outcomeCrash, &CrawlError{Msg: "unknown crawl error"}
		}
		return Result{}, outcomeCrash, &CrawlError{Msg: "cannot read result", Err: recv.err}
	}
	if recv.env.Err != nil {
		return Result{}, outcomeError, fromWire(recv.env.Err)
	}
	if len(recv.env.Value) == 0 {
		return Result{}, outcomeCrash, &CrawlError{Msg: "unknown crawl error"}
	}
	return Result{raw: recv.env.Value}, outcomeOK, nil
}

// prime starts a disposable no-op child process once, so that any one-time
// setup of process spawning happens outside of invocations.
func (s *Supervisor) prime() {
	if !s.priming {
		return
	}
	s.primeOnce.Do(func() {
		cmd := reexec.Command(noopAction)
		if err := cmd.Run(); err != nil {
			log.Warnf("priming child process failed: %s", err.Error())
		}
	})
}

// resultChannel returns a new pipe, trying to raise its capacity.
func (s *Supervisor) resultChannel() (r, w *os.File, err error) {
	r, w, err = os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	if s.pipeSize <= 0 {
		return r, w, nil
	}
	fd := w.Fd()
	if _, err := unix.FcntlInt(fd, unix.F_SETPIPE_SZ, s.pipeSize); err != nil {
		if _, err := unix.FcntlInt(fd, unix.F_SETPIPE_SZ, fallbackPipeSize); err != nil {
			log.Debugf("cannot raise result channel capacity: %s", err.Error())
		}
	}
	return r, w, nil
}

// join waits for the worker to terminate, killing its process group after
// the join timeout.
func (s *Supervisor) join(id string, pgid int, exited <-chan struct{}) {
	select {
	case <-exited:
		return
	case <-time.After(s.joinTimeout):
	}
	log.Errorf("invocation %s: worker %d still alive after %s, killing it",
		id, pgid, s.joinTimeout)
	s.kill(pgid)
	select {
	case <-exited:
	case <-time.After(s.joinTimeout):
		log.Errorf("invocation %s: worker %d refuses to die", id, pgid)
	}
}

// kill the process group of a worker, thus including its executor.
func (s *Supervisor) kill(pgid int) {
	switch err := unix.Kill(-pgid, unix.SIGKILL); {
	case err == nil:
		s.metrics.killed()
	case !errors.Is(err, unix.ESRCH):
		log.Errorf("cannot kill worker process group %d: %s", pgid, err.Error())
	}
}
