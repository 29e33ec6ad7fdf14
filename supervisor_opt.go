// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/siemens/nscrawler/nsenter"
)

// NewOption represents options to New when creating a new Supervisor.
type NewOption func(*Supervisor)

// WithTimeout sets the default timeout of Func invocations whose context
// doesn't carry a deadline. A timeout of zero or less is taken as the
// default timeout of 10s instead.
func WithTimeout(d time.Duration) NewOption {
	return func(s *Supervisor) {
		s.timeout = d
	}
}

// WithJoinTimeout sets the maximum duration to wait for a worker process to
// terminate after its result has been received or its deadline has passed,
// before the worker and its executor get killed. A timeout of zero or less
// is taken as 1s instead.
func WithJoinTimeout(d time.Duration) NewOption {
	return func(s *Supervisor) {
		s.joinTimeout = d
	}
}

// WithPriming controls whether the Supervisor starts a disposable no-op
// child process once before its first invocation. Priming is enabled by
// default.
func WithPriming(enable bool) NewOption {
	return func(s *Supervisor) {
		s.priming = enable
	}
}

// WithTolerated sets the namespace kinds whose attach failures are only
// logged instead of failing an invocation. By default, only failing to
// attach to a user namespace is tolerated. Specifying no kinds makes all
// attach failures fatal.
func WithTolerated(kinds ...nsenter.Kind) NewOption {
	return func(s *Supervisor) {
		s.tolerated = append([]nsenter.Kind{}, kinds...)
	}
}

// WithPipeSize sets the requested capacity of result channels. If the
// capacity cannot be set, the Supervisor retries once with 64KiB before
// falling back to the system's default capacity.
func WithPipeSize(size int) NewOption {
	return func(s *Supervisor) {
		s.pipeSize = size
	}
}

// WithRegisterer registers the Supervisor's invocation metrics with the
// specified Prometheus registerer.
func WithRegisterer(reg prometheus.Registerer) NewOption {
	return func(s *Supervisor) {
		s.registerer = reg
	}
}
