// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package packages collects the installed software packages of a target,
// as recorded in the databases of the dpkg and apk package managers.
package packages

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/nsenter"
)

// Name of this feature.
const Name = "packages"

func init() {
	collector.Register(Name, &Feature{})
}

// Package is an installed software package.
type Package struct {
	Name    string `cbor:"name"`
	Version string `cbor:"version"`
	Arch    string `cbor:"arch,omitempty"`
	Manager string `cbor:"manager"`
}

// database describes where a package manager keeps its list of installed
// packages and how to parse it.
type database struct {
	manager string
	path    string
	parse   func(io.Reader) ([]Package, error)
}

var databases = []database{
	{manager: "dpkg", path: "/var/lib/dpkg/status", parse: ParseDpkgStatus},
	{manager: "apk", path: "/lib/apk/db/installed", parse: ParseApkInstalled},
}

// Feature collects the installed [Package] list, sorted by package manager
// and package name.
type Feature struct{}

func (f *Feature) Namespaces() []nsenter.Kind { return []nsenter.Kind{nsenter.Mnt} }

func (f *Feature) RootfsCapable() bool { return true }

func (f *Feature) Collect(ctx context.Context, opts collector.Options) (any, error) {
	pkgs := []Package{}
	for _, db := range databases {
		path, err := collector.Resolve(opts.Root, db.path)
		if err != nil {
			continue
		}
		dbf, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		dbpkgs, err := db.parse(dbf)
		dbf.Close()
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, dbpkgs...)
	}
	sort.SliceStable(pkgs, func(i, j int) bool {
		if pkgs[i].Manager != pkgs[j].Manager {
			return pkgs[i].Manager < pkgs[j].Manager
		}
		return pkgs[i].Name < pkgs[j].Name
	})
	return pkgs, nil
}

// stanzas calls fn for each blank-line separated stanza of "Key: value" (or
// "K:value") lines, passing the stanza's fields. Continuation lines starting
// with whitespace are skipped.
func stanzas(r io.Reader, sep string, fn func(fields map[string]string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	fields := map[string]string{}
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if len(fields) > 0 {
				fn(fields)
				fields = map[string]string{}
			}
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			continue
		}
		key, value, ok := strings.Cut(line, sep)
		if !ok {
			continue
		}
		fields[key] = strings.TrimSpace(value)
	}
	if len(fields) > 0 {
		fn(fields)
	}
	return scanner.Err()
}

// ParseDpkgStatus returns the installed packages from a dpkg status file.
func ParseDpkgStatus(r io.Reader) ([]Package, error) {
	pkgs := []Package{}
	err := stanzas(r, ":", func(fields map[string]string) {
		if fields["Package"] == "" || !strings.HasSuffix(fields["Status"], " installed") {
			return
		}
		pkgs = append(pkgs, Package{
			Name:    fields["Package"],
			Version: fields["Version"],
			Arch:    fields["Architecture"],
			Manager: "dpkg",
		})
	})
	return pkgs, err
}

// ParseApkInstalled returns the installed packages from an apk database.
func ParseApkInstalled(r io.Reader) ([]Package, error) {
	pkgs := []Package{}
	err := stanzas(r, ":", func(fields map[string]string) {
		if fields["P"] == "" {
			return
		}
		pkgs = append(pkgs, Package{
			Name:    fields["P"],
			Version: fields["V"],
			Arch:    fields["A"],
			Manager: "apk",
		})
	})
	return pkgs, err
}
