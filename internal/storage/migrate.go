package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrator wraps a migrate instance over the embedded save-log schema. It
// owns a dedicated connection: closing the instance closes the database it
// was built on, which must not be the repository's pool.
type migrator struct {
	m  *migrate.Migrate
	db *sql.DB
}

func openMigrator(dbPath string) (*migrator, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open migration database: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return &migrator{m: m, db: db}, nil
}

func (g *migrator) Close() {
	g.m.Close()
	g.db.Close()
}

// RunMigrations brings the save log at dbPath to the latest schema.
func RunMigrations(dbPath string) error {
	g, err := openMigrator(dbPath)
	if err != nil {
		return err
	}
	defer g.Close()

	if err := g.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version. A database that was
// never migrated returns version 0.
func SchemaVersion(dbPath string) (version uint, dirty bool, err error) {
	g, err := openMigrator(dbPath)
	if err != nil {
		return 0, false, err
	}
	defer g.Close()

	version, dirty, err = g.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}
