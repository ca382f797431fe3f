// Package main provides the entry point for the exposcan CLI.
//
// exposcan crawls a list of websites and reports publicly reachable
// resources that look sensitive: configuration files, keys, database dumps,
// backups and version-control directories.
//
// Usage:
//
//	exposcan scan targets.txt
//	exposcan history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
