// Package sqlite3 implements a pile store on SQLite.
package sqlite3

import (
	"context"
	"database/sql"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store"
)

var _ pile.Store = &Store{}

// Store is a SQLite-based pile store.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `pile_values` and `pile_lists` tables if they do not exist.
// (If they do exist, they must have the columns, constraints, and indexing described here.)
// List order is the order of the autoincrementing id column.
const Schema = `
CREATE TABLE IF NOT EXISTS pile_values (
  key TEXT PRIMARY KEY NOT NULL,
  value BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS pile_lists (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  key TEXT NOT NULL,
  value BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS pile_lists_idx ON pile_lists (key, id);
`

// New produces a new Store using `db` for storage.
// It expects to create tables `pile_values` and `pile_lists`,
// or for those tables already to exist with the correct schema.
// (See Schema.)
//
// SQLite allows only one writer at a time,
// so New limits db to a single open connection.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	db.SetMaxOpenConns(1)
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, errors.Wrap(err, "creating schema")
}

// SetNX implements pile.Store.
func (s *Store) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	const q = `INSERT INTO pile_values (key, value)
		SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM pile_lists WHERE key = $1)
		ON CONFLICT DO NOTHING`

	res, err := s.db.ExecContext(ctx, q, key, nonNil(value))
	if err != nil {
		return false, errors.Wrapf(err, "inserting value %s", key)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "counting affected rows")
	}
	return aff > 0, nil
}

// Get implements pile.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const q = `SELECT value FROM pile_values WHERE key = $1`

	var value []byte
	err := s.db.QueryRowContext(ctx, q, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "getting value %s", key)
	}
	return nonNil(value), true, nil
}

// RPush implements pile.Store.
func (s *Store) RPush(ctx context.Context, key string, value []byte) error {
	const q = `INSERT INTO pile_lists (key, value) VALUES ($1, $2)`

	_, err := s.db.ExecContext(ctx, q, key, nonNil(value))
	return errors.Wrapf(err, "appending to list %s", key)
}

// LRange implements pile.Store.
func (s *Store) LRange(ctx context.Context, key string, start, end int64) ([][]byte, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	const q1 = `SELECT COUNT(*) FROM pile_lists WHERE key = $1`

	var length int
	if err = tx.QueryRowContext(ctx, q1, key).Scan(&length); err != nil {
		return nil, errors.Wrapf(err, "counting list %s", key)
	}

	lo, hi := store.Span(length, start, end)
	result := make([][]byte, 0, hi-lo)
	if lo == hi {
		return result, nil
	}

	const q2 = `SELECT value FROM pile_lists WHERE key = $1 ORDER BY id LIMIT $2 OFFSET $3`

	err = sqlutil.ForQueryRows(ctx, tx, q2, key, hi-lo, lo, func(value []byte) {
		result = append(result, nonNil(value))
	})
	return result, errors.Wrapf(err, "reading list %s", key)
}

// Exists implements pile.Store.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM pile_values WHERE key = $1)
		OR EXISTS (SELECT 1 FROM pile_lists WHERE key = $1)`

	var exists bool
	err := s.db.QueryRowContext(ctx, q, key).Scan(&exists)
	return exists, errors.Wrapf(err, "checking %s", key)
}

// Del implements pile.Store.
func (s *Store) Del(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM pile_values WHERE key = $1`, key); err != nil {
		return errors.Wrapf(err, "deleting value %s", key)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM pile_lists WHERE key = $1`, key); err != nil {
		return errors.Wrapf(err, "deleting list %s", key)
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// An empty value is stored as an empty blob, not NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func init() {
	store.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (pile.Store, error) {
		var c struct {
			Conn string `mapstructure:"conn"`
		}
		if err := store.Decode(conf, &c); err != nil {
			return nil, errors.Wrap(err, "decoding sqlite3 config")
		}
		if c.Conn == "" {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("sqlite3", c.Conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
