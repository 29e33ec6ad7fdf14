// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package logsink configures where the (logrus-backed) lxkns logging of the
// crawler goes to, and allows temporarily holding back log output while an
// OS thread is switched into other namespaces.
package logsink

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/siemens/nscrawler/nsenter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	_ "github.com/thediveo/lxkns/log/logrus" // route lxkns logging to logrus
)

// Config describes the log level and destination.
type Config struct {
	Level      string `mapstructure:"level"`       // logrus level name, defaults to "info".
	File       string `mapstructure:"file"`        // rotated log file, or stderr if empty.
	MaxSizeMB  int    `mapstructure:"max-size"`    // rotation size.
	MaxBackups int    `mapstructure:"max-backups"` // rotated files to keep.
}

// maxHeld limits the amount of log output held back while suspended; any
// further output gets dropped until resuming.
const maxHeld = 256 * 1024

// Writer passes writes on to its underlying writer, unless suspended. While
// suspended, writes are held back and passed on only after resuming.
type Writer struct {
	mu        sync.Mutex
	w         io.Writer
	suspended bool
	held      bytes.Buffer
	dropped   int
}

// NewWriter returns a new suspendable Writer for w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (s *Writer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.suspended {
		return s.w.Write(p)
	}
	if s.held.Len()+len(p) > maxHeld {
		s.dropped++
		return len(p), nil
	}
	return s.held.Write(p)
}

// Suspend holds back all further writes until Resume is called.
func (s *Writer) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = true
}

// Resume writes out any held back output and passes on future writes
// directly again.
func (s *Writer) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = false
	if s.held.Len() > 0 {
		_, _ = s.w.Write(s.held.Bytes())
		s.held.Reset()
	}
	if s.dropped > 0 {
		_, _ = io.WriteString(s.w, "(log output dropped while attached to namespaces)\n")
		s.dropped = 0
	}
}

var (
	mu      sync.Mutex
	current *Writer
	closer  io.Closer
)

// Setup configures the logrus standard logger according to cfg and hooks
// the suspendable output into namespace attaching and detaching.
func Setup(cfg Config) error {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = logrus.ParseLevel(cfg.Level); err != nil {
			return err
		}
	}
	var out io.Writer = os.Stderr
	var c io.Closer
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		out, c = lj, lj
	}
	w := NewWriter(out)

	mu.Lock()
	if closer != nil {
		_ = closer.Close()
	}
	current, closer = w, c
	mu.Unlock()

	std := logrus.StandardLogger()
	std.SetLevel(level)
	std.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FullTimestamp:   true,
	})
	std.SetOutput(w)
	nsenter.SuspendLogging = Suspend
	nsenter.ResumeLogging = Resume
	return nil
}

// Suspend holds back log output of the currently configured sink.
func Suspend() {
	mu.Lock()
	w := current
	mu.Unlock()
	if w != nil {
		w.Suspend()
	}
}

// Resume writes out held back log output of the currently configured sink
// and resumes normal operation.
func Resume() {
	mu.Lock()
	w := current
	mu.Unlock()
	if w != nil {
		w.Resume()
	}
}
