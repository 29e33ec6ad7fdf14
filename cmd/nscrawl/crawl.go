// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/siemens/nscrawler"
	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/crawler"
	"github.com/siemens/nscrawler/discovery"
	"github.com/siemens/nscrawler/internal/logsink"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/model"
)

func newCrawlCmd(v *viper.Viper) *cobra.Command {
	crawlCmd := &cobra.Command{
		Use:   "crawl",
		Short: "crawl features of processes and containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return crawl(cmd, v)
		},
	}
	flags := crawlCmd.Flags()
	flags.IntSlice("pid", nil, "PID(s) of processes to crawl")
	flags.Bool("wormhole", false, "crawl rootfs-capable features of PIDs through /proc/[PID]/root")
	flags.StringSlice("container", nil, "name(s) or ID(s) of Docker containers to crawl")
	flags.Bool("all-containers", false, "crawl all running Docker containers")
	flags.String("docker-host", "", "Docker API endpoint, defaults to DOCKER_HOST or the default socket")
	flags.StringSlice("feature", nil, "feature(s) to crawl, defaults to all features")
	flags.Duration("timeout", 0, "timeout per feature and target (default 10s)")
	flags.Duration("join-timeout", 0, "time to wait for workers to terminate (default 1s)")
	flags.Int("workers", 0, "max. parallel feature runs, defaults to GOMAXPROCS")
	flags.StringSlice("tolerated", nil, "namespace kinds to silently skip when not switchable (default [user])")
	flags.Bool("rootfs", true, "crawl rootfs-capable features from container rootfs when available")
	flags.String("format", "json", "output format: json or yaml")
	flags.String("metrics-file", "", "write Prometheus metrics to this text file after crawling")
	crawlCmd.MarkFlagsMutuallyExclusive("container", "all-containers")
	return crawlCmd
}

// crawl the targets specified on the command line and write the frames to
// the command's output.
func crawl(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}
	if err := logsink.Setup(cfg.Log); err != nil {
		return err
	}
	ctx := cmd.Context()

	finders, closer, err := targetFinders(cmd, cfg.DockerHost)
	if err != nil {
		return err
	}
	defer closer()
	targets, err := discovery.Find(ctx, finders...)
	if err != nil {
		return err
	}
	features := cfg.Features
	if len(features) == 0 {
		features = collector.Names()
	}

	tolerated, _ := cfg.ToleratedKinds()
	registry := prometheus.NewRegistry()
	supervisor, err := nscrawler.New(
		nscrawler.WithTimeout(cfg.Timeout),
		nscrawler.WithJoinTimeout(cfg.JoinTimeout),
		nscrawler.WithTolerated(tolerated...),
		nscrawler.WithRegisterer(registry))
	if err != nil {
		return err
	}
	defer supervisor.Close()

	log.Infof("crawling targets: %d", len(targets))
	frames, err := crawler.New(supervisor,
		crawler.WithWorkers(cfg.Workers),
		crawler.WithRootfs(cfg.Rootfs)).Crawl(ctx, targets, features)
	if err != nil && frames == nil {
		return err
	}
	if werr := writeFrames(cmd.OutOrStdout(), cfg.Format, frames); werr != nil {
		return werr
	}
	if cfg.MetricsFile != "" {
		if merr := prometheus.WriteToTextfile(cfg.MetricsFile, registry); merr != nil {
			return fmt.Errorf("cannot write metrics, reason: %w", merr)
		}
	}
	return err
}

// targetFinders returns the target finders for the target flags, together with a
// function to close them after use.
func targetFinders(cmd *cobra.Command, dockerHost string) ([]discovery.Finder, func(), error) {
	flags := cmd.Flags()
	pids, _ := flags.GetIntSlice("pid")
	wormhole, _ := flags.GetBool("wormhole")
	containers, _ := flags.GetStringSlice("container")
	allContainers, _ := flags.GetBool("all-containers")

	finders := []discovery.Finder{}
	closer := func() {}
	if len(pids) != 0 {
		pf := &discovery.PIDFinder{Wormhole: wormhole}
		for _, pid := range pids {
			pf.PIDs = append(pf.PIDs, model.PIDType(pid))
		}
		finders = append(finders, pf)
	}
	if len(containers) != 0 || allContainers {
		df, err := discovery.NewDockerFinder(dockerHost, containers...)
		if err != nil {
			return nil, nil, err
		}
		finders = append(finders, df)
		closer = func() { _ = df.Close() }
	}
	if len(finders) == 0 {
		return nil, nil, errors.New("no targets specified, use --pid, --container, or --all-containers")
	}
	return finders, closer, nil
}
