package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "sotorrent18_12.sqlite3"
	//   "file:sotorrent.db?cache=shared"
	//   ":memory:"
	DSN string

	// Pragmas are extra "PRAGMA <x>" statements run once after opening,
	// e.g. "journal_mode = WAL".
	Pragmas []string
}
