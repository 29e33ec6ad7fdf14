/*
Package nscrawler runs collector functions “inside” the Linux namespaces of
arbitrary target processes, such as the processes of containers, without any
agent inside the containers. Results (or errors) are returned to the caller,
with a hard deadline and guaranteed cleanup of all processes and file
descriptors involved.

# Quick Start

Binaries embedding nscrawler must call [Init] first thing in main, as well as
in TestMain of test binaries:

	func main() {
	    if nscrawler.Init() {
	        return
	    }
	    ...
	}

Funcs are registered by name, typically in init functions:

	func init() {
	    nscrawler.Register("rootdir", func(ctx context.Context, args nscrawler.Args) (any, error) {
	        return unsorted.ReadDir("/")
	    })
	}

and then run via a [Supervisor]:

	supervisor, _ := nscrawler.New(nscrawler.WithTimeout(5 * time.Second))
	names, err := nscrawler.RunAs[[]string](ctx, supervisor,
	    containerPID, []nsenter.Kind{nsenter.Mnt}, "rootdir")

# Processes

Go processes are multi-threaded from the start and cannot fork without
exec'ing. Switching namespaces is a per-thread matter (with the user
namespace being impossible to switch at all in multi-threaded processes), so
each invocation involves two re-executed copies of the crawler binary:

  - the worker process locks its main OS thread, gives this thread its own
    file system attributes, switches the thread into the target namespaces,
    and then starts the executor process from this thread.
  - the executor process is thus created completely inside the target
    namespaces. It calls the Func, drains any lazy result, and sends the
    result over a pipe back to the supervisor, and then terminates. The
    worker waits for the executor to terminate, switches back and terminates
    too.

Worker and executor share their own process group, which the supervisor kills
on timeout or if the worker doesn't terminate in time after returning its
result. As the executor binary is started while the mount namespace has
already been switched, the crawler binary should be statically linked
(CGO_ENABLED=0).

# Lazy Results

Funcs may return iter.Seq and iter.Seq2 iterators, receive channels, or values
implementing [Materializer]. These get drained into slices inside the
executor, that is, while still inside the target namespaces.

# Errors

Errors returned by Funcs are transferred as [CollectorError] values carrying
the original error type name, message, stack trace (when available) and
system error number. Errors of types registered with [RegisterErrorType] are
recreated, so that errors.As works across the process boundary.

# Probes

Additionally, a [Supervisor] starts long-running auxiliary probe processes
using [Supervisor.Spawn], passing on only explicitly kept file descriptors.
*/
package nscrawler
