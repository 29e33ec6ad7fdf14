// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

func probeMain() {
	os.Exit(runProbeTrampoline())
}

// runProbeTrampoline prepares the file descriptors and signal dispositions
// of the probe process and then executes the probe program, replacing this
// trampoline. It only returns if something went wrong, after having reported
// the system error number to the supervisor.
func runProbeTrampoline() int {
	reqb, err := base64.StdEncoding.DecodeString(os.Getenv(probeRequestEnv))
	if err != nil {
		return 127
	}
	var req probeRequest
	if err := unmarshal(reqb, &req); err != nil || len(req.Argv) == 0 || req.ReportFd < 3 {
		return 127
	}
	fail := func(err error) int {
		errno := syscall.Errno(errnoOf(err))
		switch {
		case errno != 0:
		case errors.Is(err, fs.ErrPermission):
			errno = syscall.EACCES
		default:
			errno = syscall.ENOENT
		}
		var report [4]byte
		binary.LittleEndian.PutUint32(report[:], uint32(errno))
		_, _ = unix.Write(req.ReportFd, report[:])
		return 127
	}

	for _, sig := range req.IgnoreSignals {
		signal.Ignore(sig)
	}

	keep := map[int]struct{}{0: {}, 1: {}, 2: {}}
	for _, fd := range req.KeepFds {
		keep[fd] = struct{}{}
	}
	if len(req.NullFds) > 0 {
		devnull, err := unix.Open("/dev/null", unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			return fail(err)
		}
		for _, fd := range req.NullFds {
			keep[fd] = struct{}{}
			if fd == devnull {
				if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, 0); err != nil {
					return fail(err)
				}
				continue
			}
			if err := unix.Dup3(devnull, fd, 0); err != nil {
				return fail(err)
			}
		}
	}
	for fd := range keep {
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, 0); err != nil && !errors.Is(err, unix.EBADF) {
			return fail(err)
		}
	}
	limit := req.ScanLimit
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err == nil && rlim.Cur < uint64(limit) {
		limit = int(rlim.Cur)
	}
	for fd := 3; fd < limit; fd++ {
		if _, ok := keep[fd]; !ok {
			unix.CloseOnExec(fd)
		}
	}

	path, err := exec.LookPath(req.Argv[0])
	if err != nil {
		return fail(err)
	}
	env := req.Env
	if env == nil {
		for _, e := range os.Environ() {
			if !strings.HasPrefix(e, probeRequestEnv+"=") {
				env = append(env, e)
			}
		}
	}
	return fail(unix.Exec(path, req.Argv, env))
}
