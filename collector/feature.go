// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package collector

import (
	"context"
	"fmt"
	"sort"

	"github.com/siemens/nscrawler"
	"github.com/siemens/nscrawler/nsenter"
	"github.com/thediveo/go-plugger/v3"
)

// Feature collects a particular kind of facts about a target.
type Feature interface {
	// Namespaces returns the kinds of namespaces to switch into before
	// collecting, in order.
	Namespaces() []nsenter.Kind
	// Collect the facts, reading files relative to opts.Root.
	Collect(ctx context.Context, opts Options) (any, error)
}

// RootfsCapable is implemented by features that are able to collect from a
// target's root filesystem path as seen from the host, without switching
// namespaces.
type RootfsCapable interface {
	RootfsCapable() bool
}

// Options are passed to features when collecting.
type Options struct {
	Root  string   `cbor:"root,omitempty"`  // root directory to read files from; defaults to "/".
	Paths []string `cbor:"paths,omitempty"` // feature-specific paths, if any.
}

// FuncName returns the name of the [nscrawler.Func] for the named feature.
func FuncName(name string) string {
	return "collector:" + name
}

// Register a feature under the specified name. Register is intended to be
// called from init functions of feature packages.
func Register(name string, f Feature) {
	plugger.Group[Feature]().Register(f, plugger.WithPlugin(name))
	nscrawler.Register(FuncName(name), func(ctx context.Context, args nscrawler.Args) (any, error) {
		var opts Options
		if args.Len() > 0 {
			if err := args.Decode(0, &opts); err != nil {
				return nil, err
			}
		}
		return Collect(ctx, f, opts)
	})
}

// Collect directly calls the feature in the current namespaces, defaulting
// the root directory to "/".
func Collect(ctx context.Context, f Feature, opts Options) (any, error) {
	if opts.Root == "" {
		opts.Root = "/"
	}
	return f.Collect(ctx, opts)
}

// Names returns the sorted names of all registered features.
func Names() []string {
	names := plugger.Group[Feature]().Plugins()
	sort.Strings(names)
	return names
}

// Lookup returns the feature registered under the specified name.
func Lookup(name string) (Feature, error) {
	for _, f := range plugger.Group[Feature]().PluginsSymbols() {
		if f.Plugin == name {
			return f.S, nil
		}
	}
	return nil, fmt.Errorf("unknown feature %q", name)
}

// SupportsRootfs returns true if the feature is able to collect from a
// root filesystem path.
func SupportsRootfs(f Feature) bool {
	rc, ok := f.(RootfsCapable)
	return ok && rc.RootfsCapable()
}
