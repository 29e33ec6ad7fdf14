// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package sockets

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"github.com/siemens/nscrawler/unsorted"
)

// soAcceptCon is the state bit mask to identify listening unix domain sockets.
// See also:
// https://elixir.bootlin.com/linux/v5.0.3/source/include/uapi/linux/net.h#L56.
const soAcceptCon = 1 << 16

// sockStream is the type enumeration value for a connection-oriented/streaming
// (unix domain) socket. See also:
// https://elixir.bootlin.com/linux/v5.0.3/source/include/linux/net.h#L64.
const sockStream = 1

// Index numbers of fields in /proc/net/unix; please see also:
// https://man7.org/linux/man-pages/man5/proc.5.html, and the section about
// /proc/net/unix in particular.
const (
	netUnixNumField      = iota //nolint:unused
	netUnixRefCountField        //nolint:unused
	netUnixProtocolField        //nolint:unused
	netUnixFlagsField           //
	netUnixTypeField            //
	netUnixStField              //nolint:unused
	netUnixInodeField           //
	netUnixPathField            //
)

// socketFdPrefix is the prefix of the string returned when readlink-ing a file
// descriptor pseudo symlink of a process. The prefix is followed by the inode
// number of the socket, and a final closing square bracket.
const socketFdPrefix = "socket:["
const socketFdPrefixLen = len(socketFdPrefix)

// socketPathsByIno maps the inode numbers of listening (unix domain) sockets
// to their corresponding path names. Sockets from Linux' "abstract namespace"
// are not included.
type socketPathsByIno map[uint64]string

// listeningUnixSockets parses the list of unix domain sockets in the format
// of /proc/net/unix, returning only the named sockets in listening state.
func listeningUnixSockets(r io.Reader) (socketPathsByIno, error) {
	sox := socketPathsByIno{}
	// Each line lists one socket with its state ("flags"), type, etc. For
	// precise field semantics, please see:
	// https://elixir.bootlin.com/linux/v5.0.3/source/net/unix/af_unix.c#L2831
	// -- this line of code generates a single line in /proc/net/unix. In
	// particular, this is "%pK: %08X %08X %08X %04X %02X %5lu". Please note
	// that the "Path" field is not included in the formatting string.
	socketscanner := bufio.NewScanner(r)
	for socketscanner.Scan() {
		// Narrow fields might be separated by multiple whitespaces, such as
		// the inode number ("%5lu"). We use the non-allocating Scanner.Bytes()
		// and thus must not keep any substrings around that survive a single
		// loop.
		fields := strings.Fields(asString(socketscanner.Bytes()))
		if len(fields) <= netUnixPathField {
			continue
		}
		// Ignore sockets from the "abstract namespace".
		if fields[netUnixPathField] != "" && fields[netUnixPathField][0] == '@' {
			continue
		}
		flags, err := strconv.ParseUint(fields[netUnixFlagsField], 16, 32)
		if err != nil { // also skips header line
			continue
		}
		soxtype, err := strconv.ParseUint(fields[netUnixTypeField], 16, 16)
		if err != nil {
			continue
		}
		if soxtype != sockStream || flags != soAcceptCon {
			continue
		}
		ino, err := strconv.ParseUint(fields[netUnixInodeField], 10, 64)
		if err != nil {
			continue
		}
		sox[ino] = strings.Clone(fields[netUnixPathField])
	}
	return sox, socketscanner.Err()
}

// socketInosOfProcess returns the inode numbers of the sockets a process has
// open, regardless of their type and state. The fd pseudo symlinks of the
// process in the proc filesystem mounted at procfs reveal these inode
// numbers, but neither socket type nor state.
func socketInosOfProcess(procfs string, pid int) ([]uint64, error) {
	fdbase := procfs + "/" + strconv.Itoa(pid) + "/fd"
	fds, err := unsorted.ReadDirNames(fdbase)
	if err != nil {
		return nil, fmt.Errorf("cannot determine fds for process with PID %d, reason: %w", pid, err)
	}
	inos := make([]uint64, 0, len(fds))
	fdbase += "/"
	for _, fd := range fds {
		linksto, err := os.Readlink(fdbase + fd)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(linksto, socketFdPrefix) || len(linksto) == socketFdPrefixLen {
			continue
		}
		ino, err := strconv.ParseUint(linksto[socketFdPrefixLen:len(linksto)-1], 10, 64)
		if err != nil {
			continue
		}
		inos = append(inos, ino)
	}
	return inos, nil
}

// socketOwners maps socket inode numbers to the PIDs of the processes having
// these sockets open, as far as visible in the proc filesystem mounted at
// procfs. Processes we're not allowed to inspect are skipped.
func socketOwners(procfs string) map[uint64][]int {
	owners := map[uint64][]int{}
	entries, err := unsorted.ReadDirNames(procfs)
	if err != nil {
		return owners
	}
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry)
		if err != nil {
			continue
		}
		inos, err := socketInosOfProcess(procfs, pid)
		if err != nil {
			continue
		}
		for _, ino := range inos {
			owners[ino] = append(owners[ino], pid)
		}
	}
	return owners
}

// asString returns a string for the specified byte slice, without allocating
// memory and without copying the contents. In consequence, the underlying byte
// slice must not be changed while the returned string is alive.
func asString(b []byte) string { return unsafe.String(unsafe.SliceData(b), len(b)) }
