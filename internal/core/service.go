package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/JonMunkholm/sheetedit/internal/logging"
	"github.com/google/uuid"
)

// DefaultMaxFileSize is the import size limit used when none is configured.
const DefaultMaxFileSize = 100 * 1024 * 1024

// CodecResolver returns the codec for a file name, chosen by extension.
type CodecResolver func(fileName string) (Codec, error)

// ServiceOptions configures a Service. Codecs and DataDir are required.
type ServiceOptions struct {
	DataDir     string // root for per-session backing files
	KeyColumn   string // defaults to DefaultKeyColumn
	MaxFileSize int64  // defaults to DefaultMaxFileSize
	Codecs      CodecResolver
	Persister   *Persister     // defaults to NewPersister()
	Index       SessionIndex   // optional
	History     ImportRecorder // optional
	Limiter     *ImportLimiter // optional
}

// Service is the entry point for the spreadsheet editor: it owns the
// session registry and runs every mutation through commit and reload.
type Service struct {
	dataDir     string
	keyColumn   string
	maxFileSize int64
	codecs      CodecResolver
	persister   *Persister
	index       SessionIndex
	history     ImportRecorder
	limiter     *ImportLimiter
	sessions    *Sessions
}

// NewService creates a new Service instance.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Codecs == nil {
		return nil, errors.New("codec resolver is required")
	}
	if opts.DataDir == "" {
		return nil, errors.New("data directory is required")
	}
	dataDir, err := filepath.Abs(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &Service{
		dataDir:     dataDir,
		keyColumn:   opts.KeyColumn,
		maxFileSize: opts.MaxFileSize,
		codecs:      opts.Codecs,
		persister:   opts.Persister,
		index:       opts.Index,
		history:     opts.History,
		limiter:     opts.Limiter,
		sessions:    NewSessions(),
	}
	if s.keyColumn == "" {
		s.keyColumn = DefaultKeyColumn
	}
	if s.maxFileSize <= 0 {
		s.maxFileSize = DefaultMaxFileSize
	}
	if s.persister == nil {
		s.persister = NewPersister()
	}
	return s, nil
}

// KeyColumn returns the configured key column.
func (s *Service) KeyColumn() string { return s.keyColumn }

// ImportResult summarises a successful import.
type ImportResult struct {
	SessionID     string   `json:"sessionId"`
	FileName      string   `json:"fileName"`
	Format        string   `json:"format"`
	Rows          int      `json:"rows"`
	Columns       []string `json:"columns"`
	DuplicateKeys []string `json:"duplicateKeys,omitempty"`
}

// Import decodes an uploaded spreadsheet and makes it the session's table,
// replacing whatever the session held before. An empty sessionID starts a
// new session. The data is written to a backing file under the data
// directory and read back before the session is published.
func (s *Service) Import(ctx context.Context, sessionID, fileName string, r io.Reader) (*ImportResult, error) {
	codec, err := s.codecs(fileName)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer s.limiter.Release()
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxFileSize)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	table, err := decode(codec, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if _, err := NewRecordStore(table, s.keyColumn); err != nil {
		return nil, err
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	log := s.logger(ctx, sessionID)

	dir := filepath.Join(s.dataDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &PersistError{Op: "commit", Path: dir, Err: err}
	}
	path := filepath.Join(dir, safeFileName(fileName))

	reloaded, err := s.persister.CommitAndReload(table, path, codec)
	if err != nil {
		log.Error("import not persisted", "file", fileName, "error", err)
		return nil, err
	}
	store, err := NewRecordStore(reloaded, s.keyColumn)
	if err != nil {
		return nil, &PersistError{Op: "reload", Path: path, Err: err}
	}

	if prev, ok := s.sessions.Current(sessionID); ok && prev.Path != path {
		if err := os.Remove(prev.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("previous backing file not removed", "path", prev.Path, "error", err)
		}
	}

	now := time.Now()
	sess := &Session{
		ID:        sessionID,
		FileName:  fileName,
		Path:      path,
		Codec:     codec,
		Store:     store,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions.Start(sess)
	s.indexPut(ctx, sess)

	dups := store.DuplicateKeys()
	if len(dups) > 0 {
		log.Warn("imported spreadsheet has duplicate keys",
			"key_column", s.keyColumn,
			"duplicates", len(dups),
		)
	}
	log.Info("spreadsheet imported",
		"file", fileName,
		"format", codec.Name(),
		"rows", reloaded.Len(),
		"columns", len(reloaded.Columns()),
	)

	s.recordImport(ctx, ImportEvent{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		FileName:      fileName,
		Format:        codec.Name(),
		Rows:          reloaded.Len(),
		Columns:       reloaded.Columns(),
		DuplicateKeys: len(dups),
		ImportedAt:    now,
	})

	return &ImportResult{
		SessionID:     sessionID,
		FileName:      fileName,
		Format:        codec.Name(),
		Rows:          reloaded.Len(),
		Columns:       reloaded.Columns(),
		DuplicateKeys: dups,
	}, nil
}

// Open starts a session whose backing file is path itself. The file is
// edited in place; nothing is copied into the data directory.
func (s *Service) Open(ctx context.Context, sessionID, path string) (*Session, error) {
	codec, err := s.codecs(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := decode(codec, f)
	if err != nil {
		return nil, err
	}
	store, err := NewRecordStore(table, s.keyColumn)
	if err != nil {
		return nil, err
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := time.Now()
	sess := &Session{
		ID:        sessionID,
		FileName:  filepath.Base(abs),
		Path:      abs,
		Codec:     codec,
		Store:     store,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions.Start(sess)

	s.logger(ctx, sessionID).Debug("spreadsheet opened", "path", abs, "rows", table.Len())
	return sess, nil
}

// Restore reloads every session recorded in the session index. Sessions
// whose backing file can no longer be read are removed from the index.
// Returns the number of sessions restored.
func (s *Service) Restore(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	infos, err := s.index.All()
	if err != nil {
		return 0, fmt.Errorf("read session index: %w", err)
	}

	restored := 0
	for _, info := range infos {
		err := s.restoreOne(info)
		if err == nil {
			restored++
			continue
		}

		log := s.logger(ctx, info.ID)
		log.Warn("session not restored", "path", info.Path, "error", err)
		if err := s.index.Delete(info.ID); err != nil {
			log.Warn("session index entry not removed", "error", err)
		}
	}
	return restored, nil
}

func (s *Service) restoreOne(info SessionInfo) error {
	codec, err := s.codecs(info.Path)
	if err != nil {
		return err
	}
	table, err := s.persister.Reload(info.Path, codec)
	if err != nil {
		return err
	}
	store, err := NewRecordStore(table, s.keyColumn)
	if err != nil {
		return err
	}

	s.sessions.Start(&Session{
		ID:        info.ID,
		FileName:  info.FileName,
		Path:      info.Path,
		Codec:     codec,
		Store:     store,
		CreatedAt: info.CreatedAt,
		UpdatedAt: time.Now(),
	})
	return nil
}

// Close forgets a session. The backing file is left on disk.
func (s *Service) Close(ctx context.Context, sessionID string) {
	s.sessions.Drop(sessionID)
	if s.index != nil {
		if err := s.index.Delete(sessionID); err != nil {
			s.logger(ctx, sessionID).Warn("session index entry not removed", "error", err)
		}
	}
}

// Session returns the current state of a session.
func (s *Service) Session(sessionID string) (*Session, error) {
	sess, ok := s.sessions.Current(sessionID)
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	return s.sessions.Len()
}

// ImportSlots returns the number of imports that could start now, or -1
// when imports are not limited.
func (s *Service) ImportSlots() int {
	if s.limiter == nil {
		return -1
	}
	return s.limiter.Available()
}

// Export encodes the session's current table to w and returns the file
// name and content type the download should be offered under.
func (s *Service) Export(ctx context.Context, sessionID string, w io.Writer) (fileName, contentType string, err error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return "", "", err
	}
	if err := sess.Codec.Encode(w, sess.Store.Table()); err != nil {
		return "", "", fmt.Errorf("encode %s: %w", sess.Codec.Name(), err)
	}
	s.logger(ctx, sessionID).Debug("spreadsheet exported", "rows", sess.Store.Table().Len())
	return sess.Codec.DownloadName(), sess.Codec.ContentType(), nil
}

// decode runs codec.Decode and makes sure failures surface as DecodeError.
func decode(codec Codec, r io.Reader) (*Table, error) {
	t, err := codec.Decode(r)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, &DecodeError{Format: codec.Name(), Err: err}
	}
	return t, nil
}

var unsafeFileChars = regexp.MustCompile(`[^\pL\pN._ -]+`)

// safeFileName strips directories and unusual characters from an uploaded
// file name so it can be used inside the session directory.
func safeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	clean := unsafeFileChars.ReplaceAllString(base, "_")
	clean = strings.TrimLeft(clean, ". ")
	if clean == "" || strings.ToLower(filepath.Ext(clean)) != ext || clean == ext {
		return "data" + ext
	}
	return clean
}

func (s *Service) logger(ctx context.Context, sessionID string) *slog.Logger {
	return logging.FromContext(logging.WithSession(ctx, sessionID))
}
