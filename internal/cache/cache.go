// Package cache persists the login session and user preferences between runs
// in a small SQLite database.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	_ "modernc.org/sqlite"

	"taskdock/internal/task"
)

// AppName is the application directory name under the user data directory.
const AppName = "taskdock"

// Cache is everything remembered between runs: where to connect, the key to
// connect with, and the vocal reminder preferences.
type Cache struct {
	ServerAPIURL string
	APIKey       string
	Prefs        task.Preferences
}

// Store reads and writes the single cached session row.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database path under the platform's user
// data directory. XDG_DATA_HOME wins when set.
func DefaultPath() string {
	base := ""
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		base = xdg
	} else if home, err := os.UserHomeDir(); err == nil {
		switch runtime.GOOS {
		case "darwin":
			base = filepath.Join(home, "Library", "Application Support")
		case "windows":
			if appData := os.Getenv("APPDATA"); appData != "" {
				base = appData
			} else {
				base = home
			}
		default:
			base = filepath.Join(home, ".local", "share")
		}
	}
	if base == "" {
		// Fallback to the working directory if home can't be determined
		return filepath.Join(AppName, "cache.db")
	}
	return filepath.Join(base, AppName, "cache.db")
}

// Open opens (creating if necessary) the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			server_api_url TEXT NOT NULL,
			api_key TEXT NOT NULL,
			vocal_enabled INTEGER NOT NULL,
			vocal_frequency INTEGER NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the cached session, or nil if none is stored.
func (s *Store) Load() (*Cache, error) {
	row := s.db.QueryRow(`
		SELECT server_api_url, api_key, vocal_enabled, vocal_frequency
		FROM session WHERE id = 1`)

	var c Cache
	var vocalEnabled int
	err := row.Scan(&c.ServerAPIURL, &c.APIKey, &vocalEnabled, &c.Prefs.VocalFrequency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	c.Prefs.VocalEnabled = vocalEnabled != 0
	if c.Prefs.VocalFrequency < 1 {
		c.Prefs.VocalFrequency = task.DefaultVocalFrequency
	}
	return &c, nil
}

// Save stores the session, replacing whatever was there.
func (s *Store) Save(c Cache) error {
	vocalEnabled := 0
	if c.Prefs.VocalEnabled {
		vocalEnabled = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO session (id, server_api_url, api_key, vocal_enabled, vocal_frequency)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			server_api_url = excluded.server_api_url,
			api_key = excluded.api_key,
			vocal_enabled = excluded.vocal_enabled,
			vocal_frequency = excluded.vocal_frequency`,
		c.ServerAPIURL, c.APIKey, vocalEnabled, c.Prefs.VocalFrequency)
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// SavePreferences updates only the preference columns, leaving the session
// untouched. It is a no-op when nothing is cached.
func (s *Store) SavePreferences(prefs task.Preferences) error {
	vocalEnabled := 0
	if prefs.VocalEnabled {
		vocalEnabled = 1
	}
	_, err := s.db.Exec(`
		UPDATE session SET vocal_enabled = ?, vocal_frequency = ? WHERE id = 1`,
		vocalEnabled, prefs.VocalFrequency)
	if err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

// Clear removes the cached session.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
