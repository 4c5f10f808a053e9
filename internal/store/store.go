// Package store provides key/blob persistence for ledger snapshots.
package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when nothing was saved under the key.
var ErrNotFound = errors.New("key not found")

// BackupSuffix is appended to a key to name its backup.
const BackupSuffix = ".corrupt"

// Store saves and loads opaque snapshots by key. Every Save replaces the
// previous blob for that key entirely.
type Store interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

// Backup copies the blob saved under key to key+BackupSuffix in the same
// store and returns the backup key. It returns "" when nothing is saved.
func Backup(s Store, key string) (string, error) {
	data, err := s.Load(key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	backupKey := key + BackupSuffix
	if err := s.Save(backupKey, data); err != nil {
		return "", fmt.Errorf("backing up %s: %w", key, err)
	}
	return backupKey, nil
}
