package core

import (
	"context"
	"errors"
)

// Add inserts a new record into the session's table and persists it.
func (s *Service) Add(ctx context.Context, sessionID string, rec Record) error {
	err := s.mutate(ctx, sessionID, "add", func(store *RecordStore) error {
		return store.Add(rec)
	})
	if err == nil {
		s.logger(ctx, sessionID).Info("record added", "key", rec[s.keyColumn])
	}
	return err
}

// Update overwrites fields of the record identified by key and persists it.
func (s *Service) Update(ctx context.Context, sessionID, key string, updates Record) error {
	err := s.mutate(ctx, sessionID, "update", func(store *RecordStore) error {
		return store.Update(key, updates)
	})
	if err == nil {
		s.logger(ctx, sessionID).Info("record updated", "key", key, "fields", len(updates))
	}
	return err
}

// Delete removes the record identified by key and persists the table.
// A missing key succeeds with zero records removed.
func (s *Service) Delete(ctx context.Context, sessionID, key string) (int, error) {
	var removed int
	err := s.mutate(ctx, sessionID, "delete", func(store *RecordStore) error {
		removed = store.Delete(key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger(ctx, sessionID).Info("record deleted", "key", key, "removed", removed)
	return removed, nil
}

// mutate applies fn to a copy of the session's table, commits the copy to
// the backing file and reloads it. The session adopts the reloaded table
// only when every step succeeds, so a failed commit leaves both the file
// and the visible table as they were. A reload in which the codec made two
// distinct keys equal is refused the same way.
func (s *Service) mutate(ctx context.Context, sessionID, op string, fn func(*RecordStore) error) error {
	return s.sessions.Update(sessionID, func(cur *Session) (*Session, error) {
		key := cur.Store.KeyColumn()
		work, err := NewRecordStore(cur.Store.Table().Clone(), key)
		if err != nil {
			return nil, err
		}
		if err := fn(work); err != nil {
			return nil, err
		}

		check := keysIntact(key, cur.Store.DuplicateKeys())
		reloaded, err := s.persister.CommitChecked(work.Table(), cur.Path, cur.Codec, check)
		if err != nil {
			s.logger(ctx, sessionID).Error("mutation not persisted", "op", op, "path", cur.Path, "error", err)
			return nil, err
		}
		next, err := NewRecordStore(reloaded, key)
		if err != nil {
			return nil, &PersistError{Op: "reload", Path: cur.Path, Err: err}
		}
		return cur.with(next), nil
	})
}

// keysIntact returns a reload check that fails with a DuplicateKeyError
// when the reloaded table has a duplicate key that was not already
// duplicated before the change.
func keysIntact(key string, known []string) func(*Table) error {
	seen := make(map[string]bool, len(known))
	for _, k := range known {
		seen[k] = true
	}
	return func(t *Table) error {
		store, err := NewRecordStore(t, key)
		if err != nil {
			return err
		}
		for _, k := range store.DuplicateKeys() {
			if !seen[k] {
				return &DuplicateKeyError{Column: key, Key: k}
			}
		}
		return nil
	}
}

// IsPersistError reports whether err is a commit or reload failure.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
