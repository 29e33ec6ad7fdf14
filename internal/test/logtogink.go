// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package test

import (
	"bytes"
	"sync"

	"github.com/siemens/nscrawler/internal/logsink"
	"github.com/siemens/nscrawler/nsenter"
	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo/v2"
)

// LogToGinkgo sends log output at debug level to Ginkgo, so that the latter
// can show it when a test fails. The log output passes through a suspendable
// log sink writer that is hooked into namespace switching, as in production.
// The returned Captured gives tests access to the log output accumulated
// during an individual test.
//
// Usage:
//
//	var logs *test.Captured
//	BeforeEach(func() { logs = test.LogToGinkgo() })
//
//	Expect(logs.String()).To(ContainSubstring(...))
func LogToGinkgo() *Captured {
	std := logrus.StandardLogger()
	stdout, stdformatter, stdlevel := std.Out, std.Formatter, std.Level
	suspend, resume := nsenter.SuspendLogging, nsenter.ResumeLogging

	captured := &Captured{gw: GinkgoWriter}
	w := logsink.NewWriter(captured)
	std.SetOutput(w)
	std.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FullTimestamp:   true,
	})
	std.SetLevel(logrus.DebugLevel)
	nsenter.SuspendLogging, nsenter.ResumeLogging = w.Suspend, w.Resume
	DeferCleanup(func() {
		std.SetOutput(stdout)
		std.SetFormatter(stdformatter)
		std.SetLevel(stdlevel)
		nsenter.SuspendLogging, nsenter.ResumeLogging = suspend, resume
	})
	return captured
}

// Captured is “-race”-safe log output that is passed on to Ginkgo and
// additionally kept for inspection.
type Captured struct {
	gw GinkgoWriterInterface
	mu sync.Mutex
	b  bytes.Buffer
}

func (c *Captured) Write(p []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.gw.Write(p)
	return c.b.Write(p)
}

// String returns the log output captured so far.
func (c *Captured) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.b.String()
}
