// Package migrations embeds the Game Circle schema into the binary.
//
// Importing this package for its side effect registers the files with the
// database package so db.Migrate works without SQL files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/gamecircle-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
