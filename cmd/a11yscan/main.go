// Package main provides the entry point for the a11yscan CLI.
//
// a11yscan evaluates web pages for accessibility across a matrix of
// rendering engines and viewport sizes. Every target page is checked under
// every engine/viewport combination by a set of pluggable probes.
//
// Usage:
//
//	a11yscan scan https://example.com/
//	a11yscan compare https://example.com/
//
// See --help for all available options.
package main

// main is the entry point for a11yscan.
func main() {
	Execute()
}
