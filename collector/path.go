// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package collector

import (
	"path/filepath"

	"github.com/thediveo/procfsroot"
)

// Resolve the specified absolute path inside the root directory, evaluating
// symbolic links in the context of root, so that absolute link targets don't
// escape into the host's filesystem. If root is "/", the path is returned
// unchanged.
func Resolve(root, path string) (string, error) {
	if root == "" || root == "/" {
		return filepath.Clean(path), nil
	}
	p, err := procfsroot.EvalSymlinks(path, root, procfsroot.EvalFullPath)
	if err != nil {
		return "", err
	}
	return root + p, nil
}
