// Package database stores the history of comparison runs.
//
// RunDB keeps one row per device run and one row per compared page. SQLite
// (modernc.org/sqlite, no cgo) is the default and lives in the XDG data
// directory. A PostgreSQL database can be used instead by opening RunDB with
// a connection URL; it is accessed through the pgx database/sql driver so both
// backends share the same queries.
package database
