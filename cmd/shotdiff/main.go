// Package main provides the entry point for the shotdiff CLI.
//
// shotdiff captures the same pages from two deployments of a site, for
// example production and staging, compares the screenshots pixel by pixel
// and writes a visual regression report.
//
// Usage:
//
//	shotdiff init
//	shotdiff run
//	shotdiff history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
