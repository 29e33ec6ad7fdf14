/*
Package discovery finds the [crawler.Target] processes to crawl, either from
plain PIDs or from the containers of a Docker engine.
*/
package discovery
