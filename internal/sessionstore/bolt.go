// Package sessionstore records live editing sessions in a bbolt file so
// they can be restored after a restart.
package sessionstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/JonMunkholm/sheetedit/internal/core"
	"go.etcd.io/bbolt"
)

var sessionsBucket = []byte("sessions")

// BoltIndex implements core.SessionIndex on a bbolt database.
type BoltIndex struct {
	db *bbolt.DB
}

var _ core.SessionIndex = (*BoltIndex)(nil)

// Open opens or creates the index at path.
func Open(path string) (*BoltIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create session index directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session index: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", sessionsBucket, err)
	}

	return &BoltIndex{db: db}, nil
}

// Put stores info under its id, replacing any previous entry.
func (b *BoltIndex) Put(info core.SessionInfo) error {
	if info.ID == "" {
		return errors.New("session id is required")
	}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(info.ID), data)
	})
}

// Delete removes the entry for id. A missing id is not an error.
func (b *BoltIndex) Delete(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(id))
	})
}

// Get returns the entry for id.
func (b *BoltIndex) Get(id string) (core.SessionInfo, bool, error) {
	var (
		info  core.SessionInfo
		found bool
	)
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(sessionsBucket).Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		// v is only valid inside the transaction; Unmarshal copies it.
		return json.Unmarshal(v, &info)
	})
	return info, found, err
}

// All returns every entry, oldest first.
func (b *BoltIndex) All() ([]core.SessionInfo, error) {
	var infos []core.SessionInfo
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(k, v []byte) error {
			var info core.SessionInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return fmt.Errorf("session %s: %w", k, err)
			}
			infos = append(infos, info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos, nil
}

// Close closes the database.
func (b *BoltIndex) Close() error {
	return b.db.Close()
}
