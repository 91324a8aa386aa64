// Package main provides the entry point for the peoplenet CLI.
//
// peoplenet builds a network of famous people from the infoboxes of a
// MediaWiki site: every person links to the people named in their infobox.
//
// Usage:
//
//	peoplenet crawl "Aristotle"
//	peoplenet session
//
// See --help for all available options.
package main

// main is the entry point for peoplenet.
func main() {
	Execute()
}
