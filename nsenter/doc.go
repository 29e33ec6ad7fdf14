/*
Package nsenter opens Linux namespace handles of processes and switches the
calling OS thread into (and out of) the namespaces of a target process.

A [ProcessContext] couples the namespaces of the calling thread (“host”) with
the namespaces of a target process for a single attach/detach cycle:

	LockThread()
	pctx, err := nsenter.NewProcessContext(pid, []nsenter.Kind{nsenter.Net, nsenter.Mnt})
	if err != nil {
	    return err
	}
	defer pctx.Detach()
	if err := pctx.Attach(); err != nil {
	    return err
	}

Namespace membership is a per-thread attribute from the kernel's view, but
Go schedules goroutines freely across OS threads. Attaching thus only ever
makes sense on a locked OS thread that is never handed back to the Go
runtime, see [LockThread]. Joining a mount namespace additionally requires
the thread to own its filesystem information (working directory, root),
which [LockThread] arranges for by unsharing CLONE_FS.

Please note that joining a user namespace is refused by the kernel for
multi-threaded processes, and Go processes are always multi-threaded. That's
why failing to attach to the user namespace is tolerated by default, see
[WithTolerated].
*/
package nsenter
