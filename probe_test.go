// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler_test

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/siemens/nscrawler"
	"golang.org/x/sys/unix"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/fdooze"
	. "github.com/thediveo/success"
)

// sigIgn returns the set of ignored signals of the process with the specified
// PID.
func sigIgn(pid int) uint64 {
	status := Successful(os.Open(fmt.Sprintf("/proc/%d/status", pid)))
	defer status.Close()
	scanner := bufio.NewScanner(status)
	for scanner.Scan() {
		if value, ok := strings.CutPrefix(scanner.Text(), "SigIgn:"); ok {
			return Successful(strconv.ParseUint(strings.TrimSpace(value), 16, 64))
		}
	}
	Fail("no SigIgn in process status")
	return 0
}

// probeOutput runs a shell script as a probe and returns what the probe
// writes to the file descriptor number passed as $1 to the script.
func probeOutput(supervisor *nscrawler.Supervisor, script string, spec nscrawler.ProbeSpec) string {
	GinkgoHelper()
	r, w, err := os.Pipe()
	Expect(err).NotTo(HaveOccurred())
	defer r.Close()
	fd := int(w.Fd())
	spec.Argv = []string{"sh", "-c", script, "probe", strconv.Itoa(fd)}
	spec.KeepFds = append(spec.KeepFds, fd)
	probe, err := supervisor.Spawn(spec)
	w.Close()
	Expect(err).NotTo(HaveOccurred())
	out := string(Successful(io.ReadAll(r)))
	Expect(probe.Wait().Success()).To(BeTrue())
	return strings.TrimSpace(out)
}

var _ = Describe("probe child launcher", func() {

	var supervisor *nscrawler.Supervisor

	BeforeEach(func() {
		goodfds := Filedescriptors()
		goodgos := Goroutines()
		supervisor = Successful(nscrawler.New(nscrawler.WithJoinTimeout(500 * time.Millisecond)))
		DeferCleanup(func() {
			supervisor.Close()
			Eventually(Goroutines).Within(goroutinesUnwindTimeout).ProbeEvery(goroutinesUnwindPolling).
				ShouldNot(HaveLeaked(goodgos))
			Expect(Filedescriptors()).NotTo(HaveLeakedFds(goodfds))
		})
	})

	It("reports exec failures", func() {
		Expect(supervisor.Spawn(nscrawler.ProbeSpec{})).Error().To(HaveOccurred())
		Expect(supervisor.Spawn(nscrawler.ProbeSpec{Argv: []string{"/nonexisting-probe"}})).Error().To(
			Equal(syscall.ENOENT))
		Expect(supervisor.Spawn(nscrawler.ProbeSpec{Argv: []string{"/dev/null"}})).Error().To(
			Equal(syscall.EACCES))
		Expect(supervisor.Spawn(nscrawler.ProbeSpec{Argv: []string{"true"}, KeepFds: []int{-1}})).Error().To(
			MatchError(ContainSubstring("invalid file descriptor")))
	})

	It("passes on only the file descriptors to keep", func() {
		// Go opens files close-on-exec, so we need to deliberately create a
		// file descriptor that would be inherited, well above the kept ones.
		const leaky = 100
		devnull := Successful(unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0))
		Expect(unix.Dup3(devnull, leaky, 0)).To(Succeed())
		unix.Close(devnull)
		defer unix.Close(leaky)
		Expect(probeOutput(supervisor,
			fmt.Sprintf(`echo kept >&$1; if [ -e /proc/$$/fd/%d ]; then echo leaked >&$1; fi`, leaky),
			nscrawler.ProbeSpec{})).To(Equal("kept"))
	})

	It("redirects file descriptors to /dev/null", func() {
		Expect(probeOutput(supervisor,
			`readlink /proc/$$/fd/0 >&$1`,
			nscrawler.ProbeSpec{NullFds: []int{0}})).To(Equal("/dev/null"))
	})

	It("starts probes in new sessions", func() {
		Expect(probeOutput(supervisor,
			`echo $(cut -d' ' -f6 /proc/$$/stat) $$ >&$1`,
			nscrawler.ProbeSpec{NewSession: true})).To(Satisfy(func(s string) bool {
			fields := strings.Fields(s)
			return len(fields) == 2 && fields[0] == fields[1]
		}))
	})

	It("ignores signals and terminates probes on close", func() {
		probe := Successful(supervisor.Spawn(nscrawler.ProbeSpec{
			Argv:          []string{"sleep", "1000"},
			IgnoreSignals: []syscall.Signal{syscall.SIGTERM},
		}))
		Expect(probe.PID).NotTo(BeZero())
		Eventually(sigIgn).WithArguments(probe.PID).Should(
			Satisfy(func(mask uint64) bool { return mask&(1<<(uint(syscall.SIGTERM)-1)) != 0 }))
		Expect(supervisor.Probes()).To(ConsistOf(probe))
		Expect(probe.Exited()).To(BeFalse())

		supervisor.Close()
		Expect(probe.Exited()).To(BeTrue())
		Expect(probe.Wait().Sys().(syscall.WaitStatus).Signal()).To(Equal(syscall.SIGKILL))
		Expect(supervisor.Spawn(nscrawler.ProbeSpec{Argv: []string{"true"}})).Error().To(
			MatchError(ContainSubstring("already closed")))
	})

	It("prunes exited probes", func() {
		probe := Successful(supervisor.Spawn(nscrawler.ProbeSpec{Argv: []string{"true"}}))
		probe.Wait()
		Expect(supervisor.Probes()).To(BeEmpty())
	})

})
