// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package all registers all collector features that come with nscrawler.
package all

import (
	_ "github.com/siemens/nscrawler/collector/configfiles"
	_ "github.com/siemens/nscrawler/collector/interfaces"
	_ "github.com/siemens/nscrawler/collector/mounts"
	_ "github.com/siemens/nscrawler/collector/osinfo"
	_ "github.com/siemens/nscrawler/collector/packages"
	_ "github.com/siemens/nscrawler/collector/processes"
	_ "github.com/siemens/nscrawler/collector/rootdir"
	_ "github.com/siemens/nscrawler/collector/sockets"
)
