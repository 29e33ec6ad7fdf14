// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package logsink

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/siemens/nscrawler/nsenter"
	"github.com/sirupsen/logrus"
	"github.com/thediveo/lxkns/log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("log sink", func() {

	BeforeEach(func() {
		std := logrus.StandardLogger()
		out, formatter, level := std.Out, std.Formatter, std.Level
		suspend, resume := nsenter.SuspendLogging, nsenter.ResumeLogging
		DeferCleanup(func() {
			std.SetOutput(out)
			std.SetFormatter(formatter)
			std.SetLevel(level)
			nsenter.SuspendLogging, nsenter.ResumeLogging = suspend, resume
			mu.Lock()
			current, closer = nil, nil
			mu.Unlock()
		})
	})

	It("holds back output while suspended", func() {
		var buff bytes.Buffer
		w := NewWriter(&buff)
		_, _ = w.Write([]byte("foo\n"))
		w.Suspend()
		_, _ = w.Write([]byte("bar\n"))
		Expect(buff.String()).To(Equal("foo\n"))
		w.Resume()
		Expect(buff.String()).To(Equal("foo\nbar\n"))
	})

	It("drops excessive output while suspended", func() {
		var buff bytes.Buffer
		w := NewWriter(&buff)
		w.Suspend()
		_, _ = w.Write([]byte(strings.Repeat("x", maxHeld)))
		Expect(w.Write([]byte("too much"))).To(Equal(8))
		w.Resume()
		Expect(buff.String()).To(HaveSuffix("(log output dropped while attached to namespaces)\n"))
	})

	It("rejects invalid levels", func() {
		Expect(Setup(Config{Level: "chatty"})).NotTo(Succeed())
	})

	It("logs into a file and hooks into namespace switching", func() {
		logfile := filepath.Join(GinkgoT().TempDir(), "crawler.log")
		Expect(Setup(Config{Level: "debug", File: logfile, MaxSizeMB: 1})).To(Succeed())
		log.Infof("canary %d", 42)
		Expect(string(Successful(os.ReadFile(logfile)))).To(ContainSubstring("canary 42"))

		nsenter.SuspendLogging()
		log.Infof("hidden canary")
		Expect(string(Successful(os.ReadFile(logfile)))).NotTo(ContainSubstring("hidden canary"))
		nsenter.ResumeLogging()
		Expect(string(Successful(os.ReadFile(logfile)))).To(ContainSubstring("hidden canary"))
		mu.Lock()
		_ = closer.Close()
		mu.Unlock()
	})

})
