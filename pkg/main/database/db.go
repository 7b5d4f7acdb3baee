package database

import (
	"embed"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3" //Needed for DB
)

//go:embed schema/*.sql
var schemaFS embed.FS

var (
	dbData    *sqlx.DB
	dbFile    string
	dbVersion string
)

// connString returns the sqlite dsn of path with the pragmas the app relies on.
func connString(path string) string {
	return "file:" + path + "?_fk=1&mode=rwc&_mutex=full&rt=1&_cslike=0"
}

// Open connects to the sqlite file at path, creating it and its directory if
// needed.
func Open(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrClassDatabase, "open_database", err).For(path)
		}
	}
	db, err := sqlx.Connect("sqlite3", connString(path))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrClassDatabase, "open_database", err).For(path)
	}
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(5)
	return db, nil
}

// InitDB opens the application database and migrates it to the latest schema.
func InitDB(path string) error {
	db, err := Open(path)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return err
	}
	dbData = db
	dbFile = path
	logger.LogDynamicany("info", "database ready", "file", path, "version", dbVersion)
	return nil
}

// GetDB returns the handle opened by InitDB.
func GetDB() *sqlx.DB {
	return dbData
}

// DBClose closes the application database.
func DBClose() {
	if dbData != nil {
		dbData.Close()
		dbData = nil
	}
}

// GetVersion returns the schema version found before the last migration.
func GetVersion() string {
	return dbVersion
}

// Migrate applies the embedded schema migrations to db.
func Migrate(db *sqlx.DB) error {
	src, err := iofs.New(schemaFS, "schema")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrClassDatabase, "migrate", err)
	}
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrClassDatabase, "migrate", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrClassDatabase, "migrate", err)
	}

	vers, _, _ := m.Version()
	dbVersion = strconv.Itoa(int(vers))

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperrors.Wrap(apperrors.ErrClassDatabase, "migrate", err)
	}
	return nil
}
