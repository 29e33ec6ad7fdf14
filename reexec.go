// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"os"

	"github.com/moby/sys/reexec"
)

// Names of the re-execution actions, passed as argv[0] to re-executed
// copies of the crawler binary.
const (
	workerAction   = "nscrawler-worker"
	executorAction = "nscrawler-executor"
	probeAction    = "nscrawler-probe"
	noopAction     = "nscrawler-noop"
)

// resultFd is the file descriptor number of the result channel's write end
// in worker and executor processes.
const resultFd = 3

func init() {
	reexec.Register(workerAction, workerMain)
	reexec.Register(executorAction, executorMain)
	reexec.Register(probeAction, probeMain)
	reexec.Register(noopAction, func() { os.Exit(0) })
}

// Init must be called first thing in main (and in TestMain of test binaries
// using a [Supervisor]). When the process is a re-executed worker, executor
// or probe trampoline, Init runs the corresponding action, which then exits
// the process. Otherwise, Init returns false.
//
//	func main() {
//	    if nscrawler.Init() {
//	        return
//	    }
//	    ...
//	}
func Init() bool {
	return reexec.Init()
}
