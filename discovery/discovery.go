// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package discovery

import (
	"context"

	"github.com/siemens/nscrawler/crawler"
	"github.com/thediveo/lxkns/model"
)

// Finder finds targets to crawl.
type Finder interface {
	Targets(ctx context.Context) ([]crawler.Target, error)
}

// Find returns the targets found by all finders, in finder order. Targets
// with the same PID found by multiple finders are reported only once, the
// first finder winning. The first finder failing aborts.
func Find(ctx context.Context, finders ...Finder) ([]crawler.Target, error) {
	seen := map[model.PIDType]struct{}{}
	targets := []crawler.Target{}
	for _, finder := range finders {
		found, err := finder.Targets(ctx)
		if err != nil {
			return nil, err
		}
		for _, target := range found {
			if _, ok := seen[target.PID]; ok {
				continue
			}
			seen[target.PID] = struct{}{}
			targets = append(targets, target)
		}
	}
	return targets, nil
}
