package core

// persist.go keeps the backing spreadsheet and the in-memory table aligned.
//
// Every successful mutation is followed by a commit and a reload. The table
// is encoded to a temp file next to the backing path, the temp file is
// decoded again, and only a temp file that decodes (and passes the
// caller's check) is renamed over the backing path. The reloaded table, not
// the mutated one, becomes the session's table, so any normalization the
// codec applies on write is what the user sees next. A failed commit or
// reload leaves the backing file as it was.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Codec reads and writes a table in one spreadsheet format.
type Codec interface {
	// Name is the format name used in errors and logs ("csv", "xlsx").
	Name() string
	// DownloadName is the file name offered when the table is downloaded.
	DownloadName() string
	// ContentType is the MIME type of encoded output.
	ContentType() string
	Decode(r io.Reader) (*Table, error)
	// Encode returns an *InvalidValueError for values the format cannot
	// store unchanged.
	Encode(w io.Writer, t *Table) error
}

// DefaultLockTimeout bounds how long Commit waits for another process
// holding the backing file lock.
const DefaultLockTimeout = 5 * time.Second

// Persister writes tables to their backing file and reads them back.
// It holds no table state. Writers to one path are serialised with an
// advisory lock file at path + ".lock".
type Persister struct {
	LockTimeout time.Duration

	mu   sync.Mutex
	held map[string]*flock.Flock
}

// NewPersister returns a Persister with the default lock timeout.
func NewPersister() *Persister {
	return &Persister{LockTimeout: DefaultLockTimeout}
}

// Hold takes the lock for path and keeps it until release is called.
// Commits to path through p do not lock again while it is held, so a
// caller can cover reading, editing and committing a file with one lock
// and keep other processes from writing in between.
func (p *Persister) Hold(path string) (release func(), err error) {
	path = filepath.Clean(path)

	p.mu.Lock()
	_, ok := p.held[path]
	p.mu.Unlock()
	if ok {
		return func() {}, nil
	}

	fl, err := p.acquire(path)
	if err != nil {
		return nil, &PersistError{Op: "lock", Path: path, Err: err}
	}

	p.mu.Lock()
	if p.held == nil {
		p.held = make(map[string]*flock.Flock)
	}
	p.held[path] = fl
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.held, path)
			p.mu.Unlock()
			fl.Unlock()
		})
	}, nil
}

// Commit encodes t and replaces the content of path with it. The new
// content must decode before it replaces the old.
func (p *Persister) Commit(t *Table, path string, codec Codec) error {
	_, err := p.CommitChecked(t, path, codec, nil)
	return err
}

// Reload decodes the table stored at path.
func (p *Persister) Reload(path string, codec Codec) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PersistError{Op: "reload", Path: path, Err: err}
	}
	defer f.Close()

	t, err := codec.Decode(f)
	if err != nil {
		return nil, &PersistError{Op: "reload", Path: path, Err: err}
	}
	return t, nil
}

// CommitAndReload runs Commit then Reload as one step and returns the
// table as read back from the committed bytes. Callers adopt the returned
// table only when err is nil.
func (p *Persister) CommitAndReload(t *Table, path string, codec Codec) (*Table, error) {
	return p.CommitChecked(t, path, codec, nil)
}

// CommitChecked is CommitAndReload with a check on the reloaded table.
// When check returns an error, path keeps its old content and the error
// is returned unchanged.
func (p *Persister) CommitChecked(t *Table, path string, codec Codec, check func(*Table) error) (*Table, error) {
	unlock, err := p.lock(path)
	if err != nil {
		return nil, &PersistError{Op: "lock", Path: path, Err: err}
	}
	defer unlock()

	tmpName, err := writeTemp(path, t, codec)
	if err != nil {
		var invalid *InvalidValueError
		if errors.As(err, &invalid) {
			return nil, invalid
		}
		return nil, &PersistError{Op: "commit", Path: path, Err: err}
	}
	defer os.Remove(tmpName) // no-op after a successful rename

	reloaded, err := p.Reload(tmpName, codec)
	if err != nil {
		var pe *PersistError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	if check != nil {
		if err := check(reloaded); err != nil {
			return nil, err
		}
	}

	if err := os.Rename(tmpName, path); err != nil {
		return nil, &PersistError{Op: "commit", Path: path, Err: err}
	}
	return reloaded, nil
}

// lock takes the advisory lock file next to path unless p already holds it.
func (p *Persister) lock(path string) (func(), error) {
	p.mu.Lock()
	_, ok := p.held[filepath.Clean(path)]
	p.mu.Unlock()
	if ok {
		return func() {}, nil
	}

	fl, err := p.acquire(path)
	if err != nil {
		return nil, err
	}
	return func() { fl.Unlock() }, nil
}

func (p *Persister) acquire(path string) (*flock.Flock, error) {
	timeout := p.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fl := flock.New(path + ".lock")
	ok, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if !ok {
		if err == nil || ctx.Err() != nil {
			return nil, fmt.Errorf("%s is locked by another process", path)
		}
		return nil, err
	}
	return fl, nil
}

// writeTemp encodes t to a synced temp file in the directory of path and
// returns its name.
func writeTemp(path string, t *Table, codec Codec) (string, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	fail := func(err error) (string, error) {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := codec.Encode(tmp, t); err != nil {
		return fail(fmt.Errorf("encode %s: %w", codec.Name(), err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return tmpName, nil
}
