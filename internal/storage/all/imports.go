// Package all wires the built-in storage backends into the storage factory.
//
// It exists for side effects only: a blank import runs each backend's init,
// which registers it under its kind ("sqlite", "postgres", "mysql").
//
//	import _ "sotorrent/internal/storage/all"
//
// Binaries that need a subset of backends can import the backend packages
// directly instead.
package all

import (
	_ "sotorrent/internal/storage/mysql"
	_ "sotorrent/internal/storage/postgres"
	_ "sotorrent/internal/storage/sqlite"
)
