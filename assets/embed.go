// Package assets embeds the SQL migrations, email templates and password list shipped with the binaries.
package assets

import "embed"

const (
	MigrationsDir       = "migrations"
	EmailTemplatesDir   = "templates/email"
	CommonPasswordsFile = "common-passwords.txt.gz"
)

//go:embed migrations/*.sql templates/email/* common-passwords.txt.gz
var FS embed.FS
