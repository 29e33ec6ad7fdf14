/*
Package unsorted provides unsorted variants of [os.ReadDir], returning either
directory entries or only their names. Crawling directories such as /proc or
a target's root directory rarely needs sorted entries, and where it does the
caller sorts by its own criteria anyway.
*/
package unsorted
