// Package database stores the history of scan runs in SQLite.
//
// Every run is saved with its counters and findings so that later runs can
// be listed, their findings reviewed, and newly exposed resources told apart
// from ones that were already reported. The database is a single file in
// the XDG data directory, accessed through the CGO-free modernc.org/sqlite
// driver in WAL mode.
package database
