// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nsenter

import (
	"fmt"
	"strings"

	"github.com/thediveo/lxkns/species"
	"golang.org/x/sys/unix"
)

// Kind identifies a type of Linux namespace by its name as used in the
// “/proc/[PID]/ns/” directory.
type Kind string

// The namespace kinds container workloads get placed into.
const (
	User Kind = "user"
	PID  Kind = "pid"
	UTS  Kind = "uts"
	IPC  Kind = "ipc"
	Net  Kind = "net"
	Mnt  Kind = "mnt"
)

// AllKinds lists all supported namespace kinds in an order suitable for
// attaching: the user namespace comes first so that the capabilities gained
// (if any) apply to the subsequent switches, while the mount namespace comes
// last, as it changes how paths get resolved.
var AllKinds = []Kind{User, PID, UTS, IPC, Net, Mnt}

var cloneFlags = map[Kind]int{
	User: unix.CLONE_NEWUSER,
	PID:  unix.CLONE_NEWPID,
	UTS:  unix.CLONE_NEWUTS,
	IPC:  unix.CLONE_NEWIPC,
	Net:  unix.CLONE_NEWNET,
	Mnt:  unix.CLONE_NEWNS,
}

// ParseKind returns the Kind for the specified namespace name, such as
// “net”. For convenience, the lxkns-style “mount” alias as well as
// surrounding white space are accepted.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "mount" {
		name = string(Mnt)
	}
	k := Kind(name)
	if _, ok := cloneFlags[k]; !ok {
		return "", fmt.Errorf("unsupported namespace kind %q", name)
	}
	return k, nil
}

// ParseKinds parses a list of namespace names, keeping their order and
// dropping duplicates.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	seen := map[Kind]struct{}{}
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// CloneFlag returns the CLONE_NEWxxx constant for this kind of namespace, or
// zero for unsupported kinds.
func (k Kind) CloneFlag() int { return cloneFlags[k] }

// Type returns the lxkns namespace type for this kind of namespace.
func (k Kind) Type() species.NamespaceType { return species.NamespaceType(cloneFlags[k]) }

// Valid returns true if this is one of the supported namespace kinds.
func (k Kind) Valid() bool {
	_, ok := cloneFlags[k]
	return ok
}

func (k Kind) String() string { return string(k) }
