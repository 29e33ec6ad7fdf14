// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package crawler

// NewOption represents options to New when creating a new crawler.
type NewOption func(*Crawler)

// WithWorkers sets the maximum number of parallel feature runs on the same
// Crawler. A maximum number of zero or less is taken as GOMAXPROCS instead.
// Please note that this maximum applies to all concurrent [Crawler.Crawl]
// calls, and not to individual [Crawler.Crawl] calls separately.
func WithWorkers(num int) NewOption {
	return func(c *Crawler) {
		c.numworkers = num
	}
}

// WithRootfs controls whether features able to collect from a root
// filesystem path do so for targets with a known rootfs, instead of
// switching into the target's namespaces. Defaults to true.
func WithRootfs(enable bool) NewOption {
	return func(c *Crawler) {
		c.rootfs = enable
	}
}
