// Package migrations embeds the SQL schema migrations applied at startup.
package migrations

import (
	"embed"

	"go.uber.org/zap"

	"github.com/caribe-transfers/service-transfer/internal/platform/database"
)

// FS holds every *.sql migration in this directory.
//
//go:embed *.sql
var FS embed.FS

// Up applies every pending migration to the database at dbURL. The schema's
// unique indexes back the repositories' upserts, so this is the only
// supported way to create it.
func Up(dbURL string, log *zap.Logger) error {
	return database.RunMigrations(dbURL, FS, ".", log)
}
