package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store persists runs, their rule matches and the spans they changed.
// One connection is kept open; SQLite allows a single writer.
type Store struct {
	db     *sql.DB
	memory bool
}

// pragma is a connection setting passed through the go-sqlite3 DSN and
// checked once the connection is up.
type pragma struct {
	param string // DSN parameter
	name  string // PRAGMA name
	value string // DSN value
	want  string // value PRAGMA reports back
}

var pragmas = []pragma{
	{"_journal_mode", "journal_mode", "WAL", "wal"},
	{"_synchronous", "synchronous", "NORMAL", "1"},
	{"_busy_timeout", "busy_timeout", "5000", "5000"},
	{"_foreign_keys", "foreign_keys", "on", "1"},
}

// migration upgrades the schema from version-1 to version.
type migration struct {
	version int
	stmt    string
}

// migrations run in order on top of schema.sql; user_version records the
// last one applied.
var migrations = []migration{
	// Identical match trees across runs (trace --hash).
	{1, `CREATE INDEX IF NOT EXISTS idx_rule_matches_tree_hash ON rule_matches(tree_hash)`},
	// Span counts per run and type (stored_count assertions).
	{2, `CREATE INDEX IF NOT EXISTS idx_spans_run_type ON spans(run_id, type, removed)`},
}

func schemaVersion() int { return migrations[len(migrations)-1].version }

// Open creates or opens the database at path (":memory:" for a private
// in-memory store), applies the schema and any pending migrations, and
// checks the connection settings took effect. Opening an existing store is
// safe.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, memory: path == ":memory:"}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return s, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Set(p.param, p.value)
	}
	return "file:" + path + "?" + q.Encode()
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, p := range pragmas {
		if s.memory && p.name == "journal_mode" {
			continue // in-memory databases have no WAL
		}
		if err := s.verifyPragma(p.name, p.want); err != nil {
			return err
		}
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return s.migrate()
}

// migrate applies every migration newer than user_version in a single
// transaction.
func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= schemaVersion() {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion())); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return tx.Commit()
}

// Close closes the database. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database for ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) verifyPragma(name, want string) error {
	var got string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&got); err != nil {
		return fmt.Errorf("read pragma %s: %w", name, err)
	}
	if got != want {
		return fmt.Errorf("pragma %s = %q, want %q", name, got, want)
	}
	return nil
}
