/*
Package crawler crawls the features of many targets in parallel, using a
[Runner] such as an [nscrawler.Supervisor] to run the feature collectors
inside the targets' namespaces.

A failing feature never aborts a crawl: its error is logged and recorded in
the target's [Frame], while the remaining features and targets carry on.

	supervisor, _ := nscrawler.New()
	c := crawler.New(supervisor, crawler.WithWorkers(4))
	frames, err := c.Crawl(ctx, targets, []string{"osinfo", "packages"})
*/
package crawler
