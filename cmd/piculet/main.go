// Package main provides the entry point for the piculet CLI.
//
// piculet extracts structured data from HTML, XML and JSON documents
// using declarative specs.
//
// Usage:
//
//	piculet scrape -s movie page.html
//	piculet scrape -s movie --json 'pages/**/*.html'
//
// See --help for all available options.
package main

// main is the entry point for piculet.
func main() {
	Execute()
}
