package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteIndexFile is the database file kept in the saves directory.
const SQLiteIndexFile = "sessions.db"

const sqliteSchema = `CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	model_path TEXT NOT NULL,
	date INTEGER NOT NULL,
	filename TEXT NOT NULL,
	engine_config BLOB
)`

// SQLiteIndex keeps descriptors in a SQLite table.
type SQLiteIndex struct {
	db *sql.DB
}

// OpenSQLiteIndex opens (or creates) dir/sessions.db. Pass ":memory:" for an
// in-memory database.
func OpenSQLiteIndex(dir string) (*SQLiteIndex, error) {
	dsn := ":memory:"
	if dir != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating saves directory: %w", err)
		}
		dsn = filepath.Join(dir, SQLiteIndexFile)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	// Single connection avoids "database is locked" and keeps :memory: shared.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions table: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

func (x *SQLiteIndex) List() ([]Descriptor, error) {
	rows, err := x.db.Query(`SELECT id, title, model_path, date, filename, engine_config FROM sessions ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()
	var ds []Descriptor
	for rows.Next() {
		var d Descriptor
		if err := rows.Scan(&d.ID, &d.Title, &d.ModelPath, &d.Date, &d.Filename, &d.EngineConfig); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		ds = append(ds, d)
	}
	return ds, rows.Err()
}

func (x *SQLiteIndex) Get(id string) (Descriptor, bool, error) {
	var d Descriptor
	err := x.db.QueryRow(`SELECT id, title, model_path, date, filename, engine_config FROM sessions WHERE id = ?`, id).
		Scan(&d.ID, &d.Title, &d.ModelPath, &d.Date, &d.Filename, &d.EngineConfig)
	if errors.Is(err, sql.ErrNoRows) {
		return Descriptor{}, false, nil
	}
	if err != nil {
		return Descriptor{}, false, fmt.Errorf("getting session %s: %w", id, err)
	}
	return d, true, nil
}

func (x *SQLiteIndex) Put(d Descriptor) error {
	_, err := x.db.Exec(`INSERT INTO sessions (id, title, model_path, date, filename, engine_config)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, model_path = excluded.model_path,
			date = excluded.date, filename = excluded.filename, engine_config = excluded.engine_config`,
		d.ID, d.Title, d.ModelPath, d.Date, d.Filename, d.EngineConfig)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", d.ID, err)
	}
	return nil
}

func (x *SQLiteIndex) Delete(id string) error {
	if _, err := x.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

func (x *SQLiteIndex) Close() error { return x.db.Close() }
