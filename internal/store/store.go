// Package store persists client settings across restarts in a small SQLite
// key-value table.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Known settings keys.
const (
	KeyUnlimitedFrames = "unlimitedFrames"
	KeyD3D9Mode        = "d3d9Mode"
)

type Store struct {
	db    *sql.DB
	cache sync.Map
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// Get returns the stored value for key, or def when unset or unreadable.
func (s *Store) Get(key, def string) string {
	if v, ok := s.cache.Load(key); ok {
		return v.(string)
	}
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if err != nil {
		return def
	}
	s.cache.Store(key, v)
	return v
}

func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated=CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	s.cache.Store(key, value)
	return nil
}

func (s *Store) Bool(key string, def bool) bool {
	v, err := strconv.ParseBool(s.Get(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}

func (s *Store) SetBool(key string, value bool) error {
	return s.Set(key, strconv.FormatBool(value))
}

func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return err
	}
	s.cache.Delete(key)
	return nil
}

// Reset deletes every stored setting so the next launch uses defaults.
func (s *Store) Reset() error {
	keys, err := s.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.Delete(k); err != nil {
			return fmt.Errorf("reset %s: %w", k, err)
		}
	}
	return nil
}

// Keys lists stored keys in sorted order.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return errors.New("store not open")
	}
	return s.db.Close()
}
