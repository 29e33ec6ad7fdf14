// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package discovery

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/siemens/nscrawler/crawler"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/model"
)

// mergedDirKey is the key of the overlay driver's merged directory in the
// graph driver data of a container.
const mergedDirKey = "MergedDir"

// DockerFinder finds the targets of running Docker containers.
type DockerFinder struct {
	client *client.Client
	names  []string // container names or IDs; all containers if empty.
}

var _ Finder = (*DockerFinder)(nil)

// NewDockerFinder returns a finder for the specified containers (names or
// IDs) of the Docker engine at the specified API endpoint, such as
// "unix:///var/run/docker.sock". An empty endpoint falls back to the
// DOCKER_HOST environment variable and then to Docker's default endpoint.
// If no container names are specified, the finder returns all running
// containers.
func NewDockerFinder(host string, names ...string) (*DockerFinder, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create Docker client, reason: %w", err)
	}
	return &DockerFinder{client: cli, names: names}, nil
}

// Close the underlying Docker client.
func (f *DockerFinder) Close() error {
	return f.client.Close()
}

// Targets returns the targets of the containers this finder is for.
// Explicitly named containers must be running, while containers going away
// in the middle of listing all containers are silently skipped.
func (f *DockerFinder) Targets(ctx context.Context) ([]crawler.Target, error) {
	if len(f.names) != 0 {
		targets := make([]crawler.Target, 0, len(f.names))
		for _, name := range f.names {
			target, err := f.target(ctx, name)
			if err != nil {
				return nil, err
			}
			targets = append(targets, target)
		}
		return targets, nil
	}
	cntrs, err := f.client.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("cannot list Docker containers, reason: %w", err)
	}
	targets := make([]crawler.Target, 0, len(cntrs))
	for _, cntr := range cntrs {
		target, err := f.target(ctx, cntr.ID)
		if err != nil {
			log.Debugf("skipping container %s, reason: %s", cntr.ID, err.Error())
			continue
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// target returns the target for the container with the specified name or ID.
func (f *DockerFinder) target(ctx context.Context, nameid string) (crawler.Target, error) {
	details, err := f.client.ContainerInspect(ctx, nameid)
	if err != nil {
		return crawler.Target{}, fmt.Errorf("cannot inspect container %q, reason: %w", nameid, err)
	}
	if details.State == nil || !details.State.Running || details.State.Pid <= 0 {
		return crawler.Target{}, fmt.Errorf("container %q is not running", nameid)
	}
	target := crawler.Target{
		Name: strings.TrimPrefix(details.Name, "/"),
		PID:  model.PIDType(details.State.Pid),
	}
	if details.Config != nil && len(details.Config.Labels) != 0 {
		target.Labels = details.Config.Labels
	}
	// The merged directory is only accessible when running in the same mount
	// namespace as the Docker engine.
	if merged := details.GraphDriver.Data[mergedDirKey]; merged != "" {
		if _, err := os.Stat(merged); err == nil {
			target.Rootfs = merged
		}
	}
	return target, nil
}
