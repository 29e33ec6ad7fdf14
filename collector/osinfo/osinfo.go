// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package osinfo collects the operating system identification of a target,
// based on its os-release file as well as its host name.
package osinfo

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/nsenter"
	"golang.org/x/sys/unix"
)

// Name of this feature.
const Name = "osinfo"

func init() {
	collector.Register(Name, &Feature{})
}

// OSInfo describes the operating system of a target.
type OSInfo struct {
	ID         string   `cbor:"id,omitempty"`
	IDLike     []string `cbor:"id_like,omitempty"`
	Name       string   `cbor:"name,omitempty"`
	Version    string   `cbor:"version,omitempty"`
	VersionID  string   `cbor:"version_id,omitempty"`
	PrettyName string   `cbor:"pretty_name,omitempty"`
	Hostname   string   `cbor:"hostname,omitempty"`
	Kernel     string   `cbor:"kernel,omitempty"`
}

// osReleasePaths lists the os-release locations in order of precedence; see
// also https://www.freedesktop.org/software/systemd/man/os-release.html.
var osReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

// Feature collects [OSInfo].
type Feature struct{}

func (f *Feature) Namespaces() []nsenter.Kind { return []nsenter.Kind{nsenter.UTS, nsenter.Mnt} }

func (f *Feature) RootfsCapable() bool { return true }

func (f *Feature) Collect(ctx context.Context, opts collector.Options) (any, error) {
	info := OSInfo{}
	for _, path := range osReleasePaths {
		path, err := collector.Resolve(opts.Root, path)
		if err != nil {
			continue
		}
		osrelease, err := os.Open(path)
		if err != nil {
			continue
		}
		vars, err := ParseOSRelease(osrelease)
		osrelease.Close()
		if err != nil {
			return nil, err
		}
		info.ID = vars["ID"]
		info.IDLike = strings.Fields(vars["ID_LIKE"])
		info.Name = vars["NAME"]
		info.Version = vars["VERSION"]
		info.VersionID = vars["VERSION_ID"]
		info.PrettyName = vars["PRETTY_NAME"]
		break
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		info.Kernel = unix.ByteSliceToString(uts.Release[:])
		info.Hostname = unix.ByteSliceToString(uts.Nodename[:])
	}
	// When reading from a root filesystem we don't have the target's UTS
	// namespace, so fall back to what the target's configuration says.
	if opts.Root != "/" {
		info.Hostname = ""
		path, err := collector.Resolve(opts.Root, "/etc/hostname")
		if err == nil {
			hostname, err := os.ReadFile(path)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
			info.Hostname = strings.TrimSpace(string(hostname))
		}
	}
	return info, nil
}

// ParseOSRelease parses the shell-compatible variable assignments of an
// os-release file, ignoring comments and blank lines.
func ParseOSRelease(r io.Reader) (map[string]string, error) {
	vars := map[string]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[name] = unquote(value)
	}
	return vars, scanner.Err()
}

// unquote a shell-style quoted value.
func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	switch value[0] {
	case '"':
		if s, err := strconv.Unquote(value); err == nil {
			return s
		}
		return strings.Trim(value, `"`)
	case '\'':
		return strings.Trim(value, "'")
	}
	return value
}
