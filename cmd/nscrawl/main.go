// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// nscrawl crawls processes and containers from the outside, by running
// feature collectors inside the Linux namespaces of the targets.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/siemens/nscrawler"

	_ "github.com/siemens/nscrawler/collector/all" // pull in all feature collectors
)

func main() {
	if nscrawler.Init() {
		return
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}
