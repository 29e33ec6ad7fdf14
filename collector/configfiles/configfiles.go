// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package configfiles collects configuration files of a target, together with
// their metadata and content digests.
package configfiles

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/nsenter"
)

// Name of this feature.
const Name = "configfiles"

// maxContent is the maximum size of files whose contents are included.
const maxContent = 16 * 1024

// DefaultPaths are collected when no explicit paths have been specified.
var DefaultPaths = []string{
	"/etc/passwd",
	"/etc/group",
	"/etc/hosts",
	"/etc/resolv.conf",
	"/etc/nsswitch.conf",
}

func init() {
	collector.Register(Name, &Feature{})
}

// ConfigFile describes a single (regular) configuration file.
type ConfigFile struct {
	Path    string    `cbor:"path"`
	Size    int64     `cbor:"size"`
	Mode    string    `cbor:"mode"`
	ModTime time.Time `cbor:"mtime"`
	Digest  string    `cbor:"xxh64"`
	Content string    `cbor:"content,omitempty"`
}

// Feature collects [ConfigFile] information for the paths specified in the
// options, or otherwise the [DefaultPaths]. Missing files are skipped.
type Feature struct{}

func (f *Feature) Namespaces() []nsenter.Kind { return []nsenter.Kind{nsenter.Mnt} }

func (f *Feature) RootfsCapable() bool { return true }

func (f *Feature) Collect(ctx context.Context, opts collector.Options) (any, error) {
	paths := opts.Paths
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	files := []ConfigFile{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resolved, err := collector.Resolve(opts.Root, path)
		if err != nil {
			continue
		}
		info, err := os.Stat(resolved)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		contents, err := os.ReadFile(resolved)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s, reason: %w", path, err)
		}
		file := ConfigFile{
			Path:    path,
			Size:    info.Size(),
			Mode:    info.Mode().String(),
			ModTime: info.ModTime().UTC(),
			Digest:  fmt.Sprintf("%016x", xxhash.Sum64(contents)),
		}
		if len(contents) <= maxContent {
			file.Content = string(contents)
		}
		files = append(files, file)
	}
	return files, nil
}
