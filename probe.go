// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/moby/sys/reexec"
	"github.com/thediveo/lxkns/log"
)

// probeRequestEnv is the environment variable passing the probe request to
// the probe trampoline.
const probeRequestEnv = "NSCRAWLER_PROBE_REQUEST"

// defaultScanLimit bounds the number of file descriptors the trampoline
// marks close-on-exec when no explicit scan limit has been specified.
const defaultScanLimit = 65536

// ProbeSpec describes a long-running auxiliary probe process to start.
type ProbeSpec struct {
	Argv          []string         // program and its arguments; the program is looked up in PATH.
	Env           []string         // environment; nil inherits the supervisor's environment.
	KeepFds       []int            // file descriptors to pass on at their same numbers.
	NullFds       []int            // file descriptors to redirect to /dev/null.
	IgnoreSignals []syscall.Signal // signals to ignore in the probe.
	NewSession    bool             // start the probe in a new session.
	ScanLimit     int              // upper fd number bound for closing inherited fds.
}

// probeRequest is what the supervisor passes to the probe trampoline.
type probeRequest struct {
	Argv          []string         `cbor:"1,keyasint"`
	Env           []string         `cbor:"2,keyasint,omitempty"`
	KeepFds       []int            `cbor:"3,keyasint,omitempty"`
	NullFds       []int            `cbor:"4,keyasint,omitempty"`
	IgnoreSignals []syscall.Signal `cbor:"5,keyasint,omitempty"`
	ScanLimit     int              `cbor:"6,keyasint"`
	ReportFd      int              `cbor:"7,keyasint"`
}

// Probe is a started probe process.
type Probe struct {
	PID  int
	Argv []string

	proc  *os.Process
	done  chan struct{}
	state *os.ProcessState
}

// Spawn starts a long-running probe process according to spec, passing on
// only the file descriptors to keep (as well as stdin, stdout and stderr)
// and redirecting the null file descriptors to /dev/null. If the probe
// program cannot be executed, Spawn returns the system error number.
func (s *Supervisor) Spawn(spec ProbeSpec) (*Probe, error) {
	if len(spec.Argv) == 0 {
		return nil, errors.New("probe needs a program to execute")
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errors.New("supervisor already closed")
	}

	reportFd := 3
	for _, fd := range slices.Concat(spec.KeepFds, spec.NullFds) {
		if fd < 0 {
			return nil, fmt.Errorf("invalid file descriptor %d", fd)
		}
		reportFd = max(reportFd, fd+1)
	}
	scanLimit := spec.ScanLimit
	if scanLimit <= 0 {
		scanLimit = defaultScanLimit
	}
	rp, wp, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	defer rp.Close()
	reqb, err := marshal(&probeRequest{
		Argv:          spec.Argv,
		Env:           spec.Env,
		KeepFds:       spec.KeepFds,
		NullFds:       spec.NullFds,
		IgnoreSignals: spec.IgnoreSignals,
		ScanLimit:     scanLimit,
		ReportFd:      reportFd,
	})
	if err != nil {
		_ = wp.Close()
		return nil, err
	}

	files := make([]uintptr, reportFd+1)
	for fd := range files {
		files[fd] = ^uintptr(0)
	}
	files[0], files[1], files[2] = 0, 1, 2
	for _, fd := range spec.KeepFds {
		files[fd] = uintptr(fd)
	}
	files[reportFd] = wp.Fd()
	env := append(os.Environ(), probeRequestEnv+"="+base64.StdEncoding.EncodeToString(reqb))
	pid, err := syscall.ForkExec(reexec.Self(), []string{probeAction}, &syscall.ProcAttr{
		Env:   env,
		Files: files,
		Sys:   &syscall.SysProcAttr{Setsid: spec.NewSession},
	})
	_ = wp.Close()
	if err != nil {
		return nil, err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, err
	}

	var report [4]byte
	switch _, err := io.ReadFull(rp, report[:]); {
	case errors.Is(err, io.EOF):
		// the report channel was closed on a successful exec.
	case err == nil:
		_, _ = proc.Wait()
		return nil, syscall.Errno(binary.LittleEndian.Uint32(report[:]))
	default:
		_ = proc.Kill()
		_, _ = proc.Wait()
		return nil, fmt.Errorf("cannot read probe start report, reason: %w", err)
	}

	p := &Probe{
		PID:  pid,
		Argv: slices.Clone(spec.Argv),
		proc: proc,
		done: make(chan struct{}),
	}
	go func() {
		p.state, _ = proc.Wait()
		close(p.done)
	}()
	log.Infof("started probe %v with PID %d", p.Argv, pid)
	s.mu.Lock()
	s.probes = slices.DeleteFunc(s.probes, (*Probe).Exited)
	s.probes = append(s.probes, p)
	s.mu.Unlock()
	return p, nil
}

// Exited returns true if the probe has terminated.
func (p *Probe) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait for the probe to terminate and return its state.
func (p *Probe) Wait() *os.ProcessState {
	<-p.done
	return p.state
}

// Signal sends the specified signal to the probe.
func (p *Probe) Signal(sig os.Signal) error {
	return p.proc.Signal(sig)
}

// terminate the probe, first asking nicely and then killing it.
func (p *Probe) terminate(grace time.Duration) {
	_ = p.proc.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
		return
	case <-time.After(grace):
	}
	log.Warnf("probe %v with PID %d ignores SIGTERM, killing it", p.Argv, p.PID)
	_ = p.proc.Kill()
	<-p.done
}

// Probes returns the still running probes started by this Supervisor.
func (s *Supervisor) Probes() []*Probe {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probes = slices.DeleteFunc(s.probes, (*Probe).Exited)
	return slices.Clone(s.probes)
}

// Close terminates all still running probes and waits for them to be gone.
// Afterwards, no new probes can be spawned, but Funcs can still be run.
func (s *Supervisor) Close() {
	s.mu.Lock()
	probes := s.probes
	s.probes = nil
	s.closed = true
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.terminate(s.joinTimeout)
		}()
	}
	wg.Wait()
}
