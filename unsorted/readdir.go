// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package unsorted

import "os"

// ReadDir reads the specified directory, returning all its directory entries,
// but not taking the time to sort them. It complements the stdlib's
// [os.ReadDir] (see also the [go-nuts] discussion).
//
// [go-nuts]:
// https://groups.google.com/g/golang-nuts/c/Q7hYQ9GdX9Q/m/fwYRMIbNDgsJ
func ReadDir(name string) ([]os.DirEntry, error) {
	return readDir(name, (*os.File).ReadDir)
}

// ReadDirNames reads the specified directory, returning only the names of its
// entries, again unsorted. This avoids allocating directory entries when only
// the names are of interest, such as when walking /proc.
func ReadDirNames(name string) ([]string, error) {
	return readDir(name, (*os.File).Readdirnames)
}

func readDir[E any](name string, read func(*os.File, int) ([]E, error)) ([]E, error) {
	d, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return read(d, -1)
}
