// Package migrations embeds the schema migrations for every supported database driver.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sqlite/*.sql mysql/*.sql postgresql/*.sql
var files embed.FS

// Dir returns the migration directory for a database driver name.
func Dir(driver string) (string, error) {
	switch driver {
	case "sqlite":
		return "sqlite", nil
	case "mysql":
		return "mysql", nil
	case "postgres":
		return "postgresql", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Source returns a golang-migrate source over the embedded migrations for driver.
func Source(driver string) (source.Driver, error) {
	dir, err := Dir(driver)
	if err != nil {
		return nil, err
	}
	return iofs.New(files, dir)
}

// New returns a migrate instance bound to an already opened database.
// Closing the returned instance closes db as well.
func New(db *sql.DB, driver string) (*migrate.Migrate, error) {
	src, err := Source(driver)
	if err != nil {
		return nil, err
	}

	var instance database.Driver
	switch driver {
	case "sqlite":
		instance, err = sqlite.WithInstance(db, &sqlite.Config{})
	case "mysql":
		instance, err = mysql.WithInstance(db, &mysql.Config{})
	case "postgres":
		instance, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migration driver: %w", driver, err)
	}

	return migrate.NewWithInstance("iofs", src, driver, instance)
}
