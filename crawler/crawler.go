// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package crawler

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/siemens/nscrawler"
	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/nsenter"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/model"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/semaphore"
)

// Runner runs a named [nscrawler.Func] inside the specified namespaces of
// the process with the specified PID. [nscrawler.Supervisor] is a Runner.
type Runner interface {
	Run(ctx context.Context, pid model.PIDType, kinds []nsenter.Kind, fn string, args ...any) (nscrawler.Result, error)
}

var _ Runner = (*nscrawler.Supervisor)(nil)

// Target to crawl. Rootfs optionally is the path of the target's root
// filesystem as seen from the host, such as the merged directory of an
// overlay filesystem.
type Target struct {
	Name   string            `json:"name" yaml:"name"`
	PID    model.PIDType     `json:"pid" yaml:"pid"`
	Rootfs string            `json:"rootfs,omitempty" yaml:"rootfs,omitempty"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Frame is the outcome of crawling a single target, with the results
// indexed by feature name.
type Frame struct {
	Target   Target                   `json:"target" yaml:"target"`
	Started  time.Time                `json:"started" yaml:"started"`
	Features map[string]FeatureResult `json:"features" yaml:"features"`
}

// FeatureResult is either the decoded value collected by a feature or the
// error message of a failed feature.
type FeatureResult struct {
	Value    any           `json:"value,omitempty" yaml:"value,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Rootfs   bool          `json:"rootfs,omitempty" yaml:"rootfs,omitempty"` // collected from the rootfs.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Crawler crawls features of targets in parallel. It can be safely used
// from multiple goroutines.
type Crawler struct {
	runner     Runner
	numworkers int                 // max number of parallel feature runs.
	workersem  *semaphore.Weighted // bounded pool.
	rootfs     bool                // prefer rootfs for rootfs-capable features.
}

// New returns a Crawler using the specified runner.
func New(runner Runner, opts ...NewOption) *Crawler {
	c := &Crawler{
		runner: runner,
		rootfs: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.numworkers <= 0 {
		c.numworkers = runtime.GOMAXPROCS(0)
	}
	c.workersem = semaphore.NewWeighted(int64(c.numworkers))
	return c
}

// job is a single feature to crawl from a single target.
type job struct {
	frame   int // index into frames.
	name    string
	feature collector.Feature
}

// outcome of a job.
type outcome struct {
	job
	result FeatureResult
}

// Crawl the named features from all targets, returning one frame per target
// in the order of the targets passed in. Unknown feature names are an error
// and then nothing gets crawled at all. If ctx gets cancelled while still
// dispatching feature runs, Crawl returns the frames collected so far
// together with the context error.
func (c *Crawler) Crawl(ctx context.Context, targets []Target, features []string) ([]Frame, error) {
	resolved := make([]collector.Feature, 0, len(features))
	for _, name := range features {
		f, err := collector.Lookup(name)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, f)
	}
	frames := make([]Frame, len(targets))
	jobs := make([]job, 0, len(targets)*len(features))
	for idx, target := range targets {
		frames[idx] = Frame{
			Target:   target,
			Started:  time.Now(),
			Features: make(map[string]FeatureResult, len(features)),
		}
		for fidx, name := range features {
			jobs = append(jobs, job{frame: idx, name: name, feature: resolved[fidx]})
		}
	}
	if len(jobs) == 0 {
		return frames, nil
	}
	// Please note that the number of parallel feature runs is bounded over
	// all parallel calls to Crawl, and not just within a single call.
	log.Infof("crawling %d features from %d targets ... in parallel", len(features), len(targets))
	outcomes := make(chan outcome, len(jobs))
	var theendisnear atomic.Int64
	theendisnear.Add(int64(len(jobs)))
	var dispatcherr error
	for idx, j := range jobs {
		if err := c.workersem.Acquire(ctx, 1); err != nil {
			// Account for the jobs never started, so that the outcome
			// channel gets closed nevertheless.
			dispatcherr = err
			if theendisnear.Add(-int64(len(jobs)-idx)) == 0 {
				close(outcomes)
			}
			break
		}
		go func(j job) {
			defer c.workersem.Release(1)
			outcomes <- outcome{job: j, result: c.crawl(ctx, frames[j.frame].Target, j.name, j.feature)}
			if theendisnear.Add(-1) > 0 {
				return
			}
			close(outcomes)
		}(j)
	}
	for o := range outcomes {
		frames[o.frame].Features[o.name] = o.result
	}
	return frames, dispatcherr
}

// crawl a single feature from a single target.
func (c *Crawler) crawl(ctx context.Context, target Target, name string, f collector.Feature) FeatureResult {
	start := time.Now()
	opts := collector.Options{}
	kinds := f.Namespaces()
	useRootfs := c.rootfs && target.Rootfs != "" && collector.SupportsRootfs(f)
	if useRootfs {
		opts.Root = target.Rootfs
		kinds = nil
	}
	res, err := c.runner.Run(ctx, target.PID, kinds, collector.FuncName(name), opts)
	var value any
	if err == nil {
		value, err = res.Any()
	}
	fr := FeatureResult{Rootfs: useRootfs, Duration: time.Since(start)}
	if err != nil {
		log.Warnf("feature %s of target %s (PID %d) failed, reason: %s",
			name, target.Name, target.PID, err.Error())
		fr.Error = err.Error()
		return fr
	}
	log.Debugf("feature %s of target %s (PID %d) collected in %s",
		name, target.Name, target.PID, fr.Duration)
	fr.Value = value
	return fr
}

// Failed returns the sorted names of the features that failed in this frame.
func (f Frame) Failed() []string {
	failed := []string{}
	for name, res := range f.Features {
		if res.Error != "" {
			failed = append(failed, name)
		}
	}
	slices.Sort(failed)
	return failed
}
