// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package sockets collects the listening unix domain and TCP sockets of a
// target, together with the processes owning them.
package sockets

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/prometheus/procfs"
	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/nsenter"
)

// Name of this feature.
const Name = "sockets"

// tcpListen is the TCP_LISTEN socket state in /proc/net/tcp[6].
const tcpListen = 0x0a

func init() {
	collector.Register(Name, &Feature{})
}

// Sockets lists the listening sockets of a target.
type Sockets struct {
	Unix []UnixSocket `cbor:"unix"`
	TCP  []TCPSocket  `cbor:"tcp"`
}

// UnixSocket is a named unix domain socket in listening state.
type UnixSocket struct {
	Path  string `cbor:"path"`
	Inode uint64 `cbor:"inode"`
	PIDs  []int  `cbor:"pids,omitempty"`
}

// TCPSocket is a TCP socket in listening state.
type TCPSocket struct {
	Address string `cbor:"address"`
	Port    uint64 `cbor:"port"`
	Inode   uint64 `cbor:"inode"`
	PIDs    []int  `cbor:"pids,omitempty"`
}

// Feature collects [Sockets]. It needs to be run in the target's network,
// PID and mount namespaces.
type Feature struct{}

func (f *Feature) Namespaces() []nsenter.Kind {
	return []nsenter.Kind{nsenter.Net, nsenter.PID, nsenter.Mnt}
}

func (f *Feature) Collect(ctx context.Context, opts collector.Options) (any, error) {
	procdir := filepath.Join(opts.Root, "proc")
	netunix, err := os.Open(filepath.Join(procdir, "net/unix"))
	if err != nil {
		return nil, err
	}
	listening, err := listeningUnixSockets(netunix)
	netunix.Close()
	if err != nil {
		return nil, err
	}
	owners := socketOwners(procdir)

	sox := Sockets{Unix: []UnixSocket{}, TCP: []TCPSocket{}}
	for ino, path := range listening {
		sox.Unix = append(sox.Unix, UnixSocket{Path: path, Inode: ino, PIDs: owners[ino]})
	}
	sort.Slice(sox.Unix, func(i, j int) bool { return sox.Unix[i].Path < sox.Unix[j].Path })

	pfs, err := procfs.NewFS(procdir)
	if err != nil {
		return nil, err
	}
	tcp, err := pfs.NetTCP()
	if err != nil {
		return nil, err
	}
	tcp6, err := pfs.NetTCP6()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for _, line := range slices.Concat(tcp, tcp6) {
		if line.St != tcpListen {
			continue
		}
		sox.TCP = append(sox.TCP, TCPSocket{
			Address: line.LocalAddr.String(),
			Port:    line.LocalPort,
			Inode:   line.Inode,
			PIDs:    owners[line.Inode],
		})
	}
	sort.Slice(sox.TCP, func(i, j int) bool {
		if sox.TCP[i].Port != sox.TCP[j].Port {
			return sox.TCP[i].Port < sox.TCP[j].Port
		}
		return sox.TCP[i].Address < sox.TCP[j].Address
	})
	return sox, nil
}
