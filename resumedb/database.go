// Package resumedb persists torrent resume state — the subset of a
// Torrent's fields that must survive a process restart — in a locally
// embedded SQLite database, migrated with goose and queried with sqlx.
// This replaces the original implementation's bespoke binary resume-file
// format while satisfying the same round-trip contract: on restart, every
// torrent the session knew about before stopping can be reconstructed
// without a full re-verify.
package resumedb

import (
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/kraken-torrent/engine/resumedb/migrations" // Add migrations.

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQL driver.
	"github.com/pressly/goose"
)

// Config configures the resume database's storage location.
type Config struct {
	Source string `yaml:"source"`
}

// Indirections over the package-level dependencies below let tests exercise
// every failure branch in New without touching a real filesystem or
// database, matching the teacher's localdb package's mockable-var style.
var (
	ensureFileDirPresent = defaultEnsureFileDirPresent
	sqlxOpen             = sqlx.Open
	gooseSetDialect      = goose.SetDialect
	gooseUp              = goose.Up
)

func defaultEnsureFileDirPresent(path string, perm os.FileMode) error {
	return os.MkdirAll(filepath.Dir(path), perm)
}

// New opens (creating if necessary) the resume database at config.Source
// and runs any pending migrations.
func New(config Config) (*sqlx.DB, error) {
	if err := ensureFileDirPresent(config.Source, 0775); err != nil {
		return nil, fmt.Errorf("ensure db source present: %s", err)
	}
	db, err := sqlxOpen("sqlite3", config.Source)
	if err != nil {
		return nil, fmt.Errorf("open sqlite3: %s", err)
	}
	// SQLite errors on concurrent writers from multiple connections.
	db.SetMaxOpenConns(1)
	if err := gooseSetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("set dialect as sqlite3: %s", err)
	}
	if err := gooseUp(db.DB, "."); err != nil {
		return nil, fmt.Errorf("perform db migration: %s", err)
	}
	return db, nil
}
