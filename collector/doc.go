/*
Package collector defines crawler features ("collectors") as plugins. Each
feature declares the kinds of namespaces it needs to be run in and gets
registered both as a plugin (for discovery by crawlers and the CLI) as well
as an [nscrawler.Func] (for running inside target namespaces).

Features that only read files can additionally collect from a target's root
filesystem as seen from the host, without switching namespaces at all, when
the target's root filesystem path is known; see [RootfsCapable].

Import the features to be used for their side effects, or simply import all
of them at once:

	import _ "github.com/siemens/nscrawler/collector/all"
*/
package collector
