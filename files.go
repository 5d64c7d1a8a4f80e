package mudradesk

import "embed"

//go:embed data/sql/migrations
var migrationsFS embed.FS

//go:embed views
var viewsFS embed.FS

// GetMigrationsFS returns the embedded SQL migrations.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// GetViewsFS returns the embedded view templates.
func GetViewsFS() embed.FS {
	return viewsFS
}
