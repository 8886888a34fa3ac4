package core

import (
	"context"
	"time"
)

// ImportEvent describes one successful spreadsheet import.
type ImportEvent struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	FileName      string    `json:"fileName"`
	Format        string    `json:"format"`
	Rows          int       `json:"rows"`
	Columns       []string  `json:"columns"`
	DuplicateKeys int       `json:"duplicateKeys"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
	ImportedAt    time.Time `json:"importedAt"`
}

// ImportRecorder keeps the import history. Implementations must be safe
// for concurrent use.
type ImportRecorder interface {
	RecordImport(ctx context.Context, ev ImportEvent) error
	RecentImports(ctx context.Context, limit int) ([]ImportEvent, error)
}

// SessionInfo is the durable part of a session: enough to reload it.
type SessionInfo struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	Path      string    `json:"path"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionIndex persists SessionInfo across restarts.
type SessionIndex interface {
	Put(info SessionInfo) error
	Delete(id string) error
	All() ([]SessionInfo, error)
}

// recordImport logs the import to the configured recorder, if any.
// History is best effort: a failure never fails the import.
func (s *Service) recordImport(ctx context.Context, ev ImportEvent) {
	if s.history == nil {
		return
	}
	ev.IPAddress = GetIPAddressFromContext(ctx)
	ev.UserAgent = GetUserAgentFromContext(ctx)
	if err := s.history.RecordImport(ctx, ev); err != nil {
		s.logger(ctx, ev.SessionID).Warn("import history not recorded", "error", err)
	}
}

// RecentImports returns up to limit imports, newest first. It returns an
// empty slice when no history is configured.
func (s *Service) RecentImports(ctx context.Context, limit int) ([]ImportEvent, error) {
	if s.history == nil {
		return []ImportEvent{}, nil
	}
	return s.history.RecentImports(ctx, limit)
}

func (s *Service) indexPut(ctx context.Context, sess *Session) {
	if s.index == nil {
		return
	}
	err := s.index.Put(SessionInfo{
		ID:        sess.ID,
		FileName:  sess.FileName,
		Path:      sess.Path,
		Format:    sess.Codec.Name(),
		CreatedAt: sess.CreatedAt,
	})
	if err != nil {
		s.logger(ctx, sess.ID).Warn("session index not updated", "error", err)
	}
}
