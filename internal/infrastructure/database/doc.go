// Package database provides SQLite database connectivity for Game Circle Core.
//
// It wraps database/sql with the mattn/go-sqlite3 driver and adds:
//   - Directory creation and file permission hardening on Open
//   - WAL mode, busy timeout and foreign key enforcement via the DSN
//   - Embedded, versioned migrations (see Migrate and the migrations package)
//   - A WithTx helper for read-modify-write operations such as the
//     game ownership toggle
//
// # Connection model
//
// The pool is capped at a single connection because SQLite allows only one
// writer. Transactions started through WithTx are therefore serialised.
//
// # Usage
//
//	db, err := database.Open(ctx, database.Config{Path: "./data/gamecircle.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
