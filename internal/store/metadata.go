package store

import (
	"database/sql"
	"time"
)

// Metadata keys written by directory syncs.
const (
	MetaLastSync = "last_sync"
	MetaDir      = "dir"
)

// SetMetadata upserts a key-value pair in the bank_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO bank_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM bank_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// MarkSynced records the directory and time of a completed sync.
func (s *Store) MarkSynced(dir string, at time.Time) error {
	if err := s.SetMetadata(MetaDir, dir); err != nil {
		return err
	}
	return s.SetMetadata(MetaLastSync, at.UTC().Format(time.RFC3339))
}

// LastSync returns the time of the last completed sync, zero if none.
func (s *Store) LastSync() (time.Time, error) {
	v, err := s.GetMetadata(MetaLastSync)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}
