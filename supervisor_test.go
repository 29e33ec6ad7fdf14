// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/moby/sys/reexec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/siemens/nscrawler"
	"github.com/siemens/nscrawler/internal/test"
	"github.com/siemens/nscrawler/nsenter"
	"github.com/siemens/nscrawler/unsorted"
	"github.com/thediveo/lxkns/model"
	"golang.org/x/sys/unix"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/siemens/nscrawler/matcher"
	. "github.com/thediveo/fdooze"
	. "github.com/thediveo/success"
)

const (
	goroutinesUnwindTimeout = 2 * time.Second
	goroutinesUnwindPolling = 250 * time.Millisecond
)

const canaryAction = "nscrawler-test-canary"

type FooError struct{ Msg string }

func (e *FooError) Error() string { return e.Msg }

func stringArg(args nscrawler.Args) (string, error) {
	var s string
	err := args.Decode(0, &s)
	return s, err
}

func init() {
	nscrawler.RegisterErrorType(func(msg string) *FooError { return &FooError{Msg: msg} })

	nscrawler.Register("test-echo", func(ctx context.Context, args nscrawler.Args) (any, error) {
		return stringArg(args)
	})
	nscrawler.Register("test-fail", func(ctx context.Context, args nscrawler.Args) (any, error) {
		msg, _ := stringArg(args)
		return nil, &FooError{Msg: msg}
	})
	nscrawler.Register("test-open", func(ctx context.Context, args nscrawler.Args) (any, error) {
		return os.ReadFile("/nonexisting-crawler-test-path")
	})
	nscrawler.Register("test-panic", func(ctx context.Context, args nscrawler.Args) (any, error) {
		panic("D'OH!")
	})
	nscrawler.Register("test-exit", func(ctx context.Context, args nscrawler.Args) (any, error) {
		os.Exit(42)
		return nil, nil
	})
	nscrawler.Register("test-hang", func(ctx context.Context, args nscrawler.Args) (any, error) {
		pidfile, err := stringArg(args)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(pidfile,
			fmt.Appendf(nil, "%d %d", os.Getpid(), os.Getppid()), 0o644); err != nil {
			return nil, err
		}
		time.Sleep(24 * time.Hour)
		return nil, nil
	})
	nscrawler.Register("test-seq", func(ctx context.Context, args nscrawler.Args) (any, error) {
		return slices.Values([]int{3, 1, 2}), nil
	})
	nscrawler.Register("test-seq2", func(ctx context.Context, args nscrawler.Args) (any, error) {
		var seq2 iter.Seq2[string, int] = func(yield func(string, int) bool) {
			for i, s := range []string{"zero", "one", "two"} {
				if !yield(s, i) {
					return
				}
			}
		}
		return seq2, nil
	})
	nscrawler.Register("test-chan", func(ctx context.Context, args nscrawler.Args) (any, error) {
		ch := make(chan string)
		go func() {
			defer close(ch)
			for _, s := range []string{"foo", "bar", "baz"} {
				ch <- s
			}
		}()
		return (<-chan string)(ch), nil
	})
	nscrawler.Register("test-hostname", func(ctx context.Context, args nscrawler.Args) (any, error) {
		return os.Hostname()
	})
	nscrawler.Register("test-readdir", func(ctx context.Context, args nscrawler.Args) (any, error) {
		dir, err := stringArg(args)
		if err != nil {
			return nil, err
		}
		entries, err := unsorted.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		sort.Strings(names)
		return names, nil
	})
	nscrawler.Register("test-pidns", func(ctx context.Context, args nscrawler.Args) (any, error) {
		return os.Readlink("/proc/self/ns/pid")
	})

	reexec.Register(canaryAction, canaryMain)
}

// canaryMain runs in fresh namespaces, sets its hostname, mounts a tmpfs with
// a marker file on the specified directory and then waits to be killed.
func canaryMain() {
	fail := func(err error) {
		fmt.Fprintf(os.Stderr, "canary failure: %s\n", err.Error())
		os.Exit(1)
	}
	if len(os.Args) != 3 {
		fail(errors.New("usage: canary HOSTNAME DIR"))
	}
	if err := unix.Sethostname([]byte(os.Args[1])); err != nil {
		fail(err)
	}
	if err := unix.Mount("", "/", "", unix.MS_REC|unix.MS_PRIVATE, ""); err != nil {
		fail(err)
	}
	if err := unix.Mount("tmpfs", os.Args[2], "tmpfs", 0, ""); err != nil {
		fail(err)
	}
	if err := os.WriteFile(filepath.Join(os.Args[2], "canary-marker"), nil, 0o644); err != nil {
		fail(err)
	}
	fmt.Println("ready")
	for {
		time.Sleep(time.Hour)
	}
}

// startCanary starts a canary process in its own namespaces, returning its
// PID and the directory where only the canary sees a marker file.
func startCanary(hostname string) (model.PIDType, string) {
	GinkgoHelper()
	dir := GinkgoT().TempDir()
	cmd := reexec.Command(canaryAction, hostname, dir)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: unix.CLONE_NEWUTS | unix.CLONE_NEWNS | unix.CLONE_NEWNET |
			unix.CLONE_NEWIPC | unix.CLONE_NEWPID,
		Pdeathsig: syscall.SIGKILL,
	}
	cmd.Stderr = GinkgoWriter
	stdout := Successful(cmd.StdoutPipe())
	Expect(cmd.Start()).To(Succeed())
	DeferCleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})
	Expect(bufio.NewReader(stdout).ReadString('\n')).To(Equal("ready\n"))
	return model.PIDType(cmd.Process.Pid), dir
}

// alive returns true if the process with the specified PID exists and isn't a
// zombie.
func alive(pid int) bool {
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	idx := bytes.LastIndexByte(stat, ')')
	return idx < 0 || idx+2 >= len(stat) || stat[idx+2] != 'Z'
}

var ownPID = model.PIDType(os.Getpid())

var _ = Describe("supervisor", func() {

	var supervisor *nscrawler.Supervisor
	var logs *test.Captured

	BeforeEach(func() {
		logs = test.LogToGinkgo()
		goodfds := Filedescriptors()
		goodgos := Goroutines()
		supervisor = Successful(nscrawler.New(nscrawler.WithTimeout(5 * time.Second)))
		DeferCleanup(func() {
			supervisor.Close()
			Eventually(Goroutines).Within(goroutinesUnwindTimeout).ProbeEvery(goroutinesUnwindPolling).
				ShouldNot(HaveLeaked(goodgos))
			Expect(Filedescriptors()).NotTo(HaveLeakedFds(goodfds))
		})
	})

	Context("without switching namespaces", func() {

		It("runs a Func and returns its result", func(ctx context.Context) {
			Expect(nscrawler.RunAs[string](ctx, supervisor, ownPID, nil, "test-echo", "hellorld")).
				To(Equal("hellorld"))
			result := Successful(supervisor.Run(ctx, ownPID, nil, "test-echo", "foo"))
			Expect(result.Any()).To(Equal("foo"))
		})

		It("rejects unknown Funcs and namespace kinds", func(ctx context.Context) {
			Expect(supervisor.Run(ctx, ownPID, nil, "test-nada")).Error().To(
				MatchError(ContainSubstring(`unknown Func "test-nada"`)))
			Expect(supervisor.Run(ctx, ownPID, []nsenter.Kind{"time"}, "test-echo", "foo")).Error().To(
				MatchError(ContainSubstring(`unsupported namespace kind "time"`)))
		})

		It("preserves error types and messages", func(ctx context.Context) {
			_, err := supervisor.Run(ctx, ownPID, nil, "test-fail", "x")
			Expect(err).To(HaveCollectorError("*nscrawler_test.FooError", "x"))
			var fooErr *FooError
			Expect(errors.As(err, &fooErr)).To(BeTrue())
			Expect(fooErr.Msg).To(Equal("x"))

			_, err = supervisor.Run(ctx, ownPID, nil, "test-open")
			Expect(err).To(HaveCollectorError("*fs.PathError", ContainSubstring("/nonexisting-crawler-test-path")))
			Expect(errors.Is(err, fs.ErrNotExist)).To(BeTrue())
		})

		It("reports panics", func(ctx context.Context) {
			_, err := supervisor.Run(ctx, ownPID, nil, "test-panic")
			var cerr *nscrawler.CollectorError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Panic).To(BeTrue())
			Expect(cerr.Message).To(Equal("D'OH!"))
			Expect(cerr.Trace).To(ContainSubstring("supervisor_test.go"))
		})

		It("materializes lazy results in order", func(ctx context.Context) {
			Expect(nscrawler.RunAs[[]int](ctx, supervisor, ownPID, nil, "test-seq")).
				To(Equal([]int{3, 1, 2}))
			type pair struct {
				Key   string
				Value int
			}
			Expect(nscrawler.RunAs[[]pair](ctx, supervisor, ownPID, nil, "test-seq2")).
				To(Equal([]pair{{"zero", 0}, {"one", 1}, {"two", 2}}))
			Expect(nscrawler.RunAs[[]string](ctx, supervisor, ownPID, nil, "test-chan")).
				To(Equal([]string{"foo", "bar", "baz"}))
		})

		It("times out and kills worker and executor", func(ctx context.Context) {
			pidfile := filepath.Join(GinkgoT().TempDir(), "pids")
			timeout := 500 * time.Millisecond
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			start := time.Now()
			_, err := supervisor.Run(ctx, ownPID, nil, "test-hang", pidfile)
			Expect(time.Since(start)).To(BeNumerically("<", timeout+1500*time.Millisecond))
			var terr *nscrawler.CrawlTimeoutError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(terr.Func).To(Equal("test-hang"))
			Expect(terr.PID).To(Equal(ownPID))

			var executor, worker int
			Expect(fmt.Sscanf(string(Successful(os.ReadFile(pidfile))), "%d %d", &executor, &worker)).
				To(Equal(2))
			Eventually(alive).WithArguments(executor).Within(2 * time.Second).Should(BeFalse())
			Eventually(alive).WithArguments(worker).Within(2 * time.Second).Should(BeFalse())
		}, NodeTimeout(10*time.Second))

		It("stops on cancellation", func(ctx context.Context) {
			ctx, cancel := context.WithCancel(ctx)
			go func() {
				time.Sleep(250 * time.Millisecond)
				cancel()
			}()
			_, err := supervisor.Run(ctx, ownPID, nil, "test-hang", filepath.Join(GinkgoT().TempDir(), "pids"))
			Expect(err).To(BeAssignableToTypeOf(&nscrawler.CrawlError{}))
			Expect(err).To(MatchError(context.Canceled))
		}, NodeTimeout(10*time.Second))

		It("reports crashes as unknown crawl errors", func(ctx context.Context) {
			_, err := supervisor.Run(ctx, ownPID, nil, "test-exit")
			Expect(err).To(Equal(&nscrawler.CrawlError{Msg: "unknown crawl error"}))
		})

		It("fails fast for processes that are already gone", func(ctx context.Context) {
			cmd := reexec.Command("nscrawler-noop")
			Expect(cmd.Run()).To(Succeed())
			start := time.Now()
			_, err := supervisor.Run(ctx, model.PIDType(cmd.Process.Pid), []nsenter.Kind{nsenter.Net}, "test-echo", "foo")
			Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
			var oerr *nsenter.NamespaceOpenError
			Expect(errors.As(err, &oerr)).To(BeTrue())
			Expect(oerr.Kind).To(Equal(nsenter.Net))
			Expect(err).To(MatchError(fs.ErrNotExist))
		})

		It("cleans up after back-to-back invocations", func(ctx context.Context) {
			// prime
			Expect(supervisor.Run(ctx, ownPID, nil, "test-echo", "foo")).Error().NotTo(HaveOccurred())
			baseline := Filedescriptors()
			for range 2 {
				Expect(supervisor.Run(ctx, ownPID, nil, "test-echo", "foo")).Error().NotTo(HaveOccurred())
			}
			Expect(Filedescriptors()).NotTo(HaveLeakedFds(baseline))
		})

		It("counts invocations", func(ctx context.Context) {
			reg := prometheus.NewRegistry()
			supervisor := Successful(nscrawler.New(nscrawler.WithRegisterer(reg), nscrawler.WithPriming(false)))
			Expect(supervisor.Run(ctx, ownPID, nil, "test-echo", "foo")).Error().NotTo(HaveOccurred())
			Expect(supervisor.Run(ctx, ownPID, nil, "test-fail", "foo")).Error().To(HaveOccurred())
			Expect(testutil.GatherAndCount(reg, "nscrawler_invocations_total")).To(Equal(2))
			Expect(testutil.GatherAndCount(reg, "nscrawler_invocation_duration_seconds")).To(Equal(1))

			Expect(nscrawler.New(nscrawler.WithRegisterer(reg))).Error().To(
				MatchError(ContainSubstring("cannot register supervisor metrics")))
		})

		It("reports insufficient privileges as attach error", func(ctx context.Context) {
			if os.Getuid() == 0 {
				Skip("must be run as non-root")
			}
			_, err := supervisor.Run(ctx, ownPID, []nsenter.Kind{nsenter.UTS}, "test-hostname")
			var aerr *nsenter.NamespaceAttachError
			Expect(errors.As(err, &aerr)).To(BeTrue())
			Expect(aerr.Kind).To(Equal(nsenter.UTS))
			Expect(err).To(MatchError(syscall.EPERM))
		})

	})

	Context("inside namespaces", func() {

		BeforeEach(func() {
			if os.Getuid() != 0 {
				Skip("needs root")
			}
		})

		It("lists directories of the target's mount namespace", func(ctx context.Context) {
			pid, dir := startCanary("canary")
			Expect(nscrawler.RunAs[[]string](ctx, supervisor, pid, []nsenter.Kind{nsenter.Mnt}, "test-readdir", dir)).
				To(ConsistOf("canary-marker"))
			Expect(nscrawler.RunAs[[]string](ctx, supervisor, ownPID, nil, "test-readdir", dir)).
				To(BeEmpty())
		})

		It("runs in the target's UTS and PID namespaces", func(ctx context.Context) {
			pid, _ := startCanary("canary")
			Expect(nscrawler.RunAs[string](ctx, supervisor, pid, []nsenter.Kind{nsenter.UTS}, "test-hostname")).
				To(Equal("canary"))
			Expect(nscrawler.RunAs[string](ctx, supervisor, pid, []nsenter.Kind{nsenter.PID}, "test-pidns")).
				To(Equal(Successful(os.Readlink(fmt.Sprintf("/proc/%d/ns/pid", pid)))))
		})

		It("runs in the target's PID namespace together with other namespaces", func(ctx context.Context) {
			pid, dir := startCanary("canary")
			pidns := Successful(os.Readlink(fmt.Sprintf("/proc/%d/ns/pid", pid)))
			Expect(nscrawler.RunAs[string](ctx, supervisor, pid,
				[]nsenter.Kind{nsenter.PID, nsenter.Mnt}, "test-pidns")).To(Equal(pidns))
			Expect(nscrawler.RunAs[[]string](ctx, supervisor, pid,
				[]nsenter.Kind{nsenter.Net, nsenter.PID, nsenter.Mnt}, "test-readdir", dir)).
				To(ConsistOf("canary-marker"))
			Expect(nscrawler.RunAs[string](ctx, supervisor, pid,
				[]nsenter.Kind{nsenter.UTS, nsenter.PID}, "test-echo", "hi")).To(Equal("hi"))
		})

		It("isolates concurrent invocations", func(ctx context.Context) {
			pids := map[string]model.PIDType{}
			for _, name := range []string{"canary-a", "canary-b"} {
				pids[name], _ = startCanary(name)
			}
			var wg sync.WaitGroup
			var mu sync.Mutex
			hostnames := map[string]string{}
			for name, pid := range pids {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					for range 3 {
						hostname, err := nscrawler.RunAs[string](ctx, supervisor, pid, []nsenter.Kind{nsenter.UTS}, "test-hostname")
						Expect(err).NotTo(HaveOccurred())
						mu.Lock()
						hostnames[name] = hostname
						mu.Unlock()
						Expect(hostname).To(Equal(name))
					}
				}()
			}
			wg.Wait()
			Expect(hostnames).To(HaveLen(2))
		})

		It("tolerates failing to switch user namespaces only when asked to", func(ctx context.Context) {
			pid, _ := startCanary("canary")
			kinds := []nsenter.Kind{nsenter.User, nsenter.UTS}
			Expect(nscrawler.RunAs[string](ctx, supervisor, pid, kinds, "test-hostname")).
				To(Equal("canary"))

			strict := Successful(nscrawler.New(nscrawler.WithTolerated()))
			_, err := strict.Run(ctx, pid, kinds, "test-hostname")
			var aerr *nsenter.NamespaceAttachError
			Expect(errors.As(err, &aerr)).To(BeTrue())
			Expect(aerr.Kind).To(Equal(nsenter.User))
			Expect(logs.String()).NotTo(ContainSubstring("still alive"))
		})

	})

})
