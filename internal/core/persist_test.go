package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func TestPersister_CommitAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	p := NewPersister()
	codec := &testCodec{}

	tbl := sampleTable()
	got, err := p.CommitAndReload(tbl, path, codec)
	if err != nil {
		t.Fatalf("CommitAndReload() error = %v", err)
	}
	if !got.Equal(tbl) {
		t.Errorf("reloaded table differs: got %v, want %v", got.Rows(), tbl.Rows())
	}

	// A second commit fully replaces the content.
	small := NewTableFromRows([]string{"CODE LOCAL"}, [][]string{{"Z"}})
	got, err = p.CommitAndReload(small, path, codec)
	if err != nil {
		t.Fatalf("second CommitAndReload() error = %v", err)
	}
	if !got.Equal(small) {
		t.Errorf("second reload = %v, want %v", got.Rows(), small.Rows())
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestPersister_ReloadReflectsNormalization(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	codec := &testCodec{upperCase: true}

	got, err := NewPersister().CommitAndReload(sampleTable(), path, codec)
	if err != nil {
		t.Fatalf("CommitAndReload() error = %v", err)
	}
	if v := got.At(0)["NOM"]; v != "PARIS" {
		t.Errorf("reloaded NOM = %q, want PARIS", v)
	}
}

func TestPersister_CommitFailureKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	codec := &testCodec{failEncode: true}

	err := NewPersister().Commit(NewTable([]string{"CODE LOCAL"}), path, codec)
	var pe *PersistError
	if !errors.As(err, &pe) || pe.Op != "commit" {
		t.Fatalf("Commit() error = %v, want PersistError(commit)", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != sampleCSV {
		t.Errorf("backing file changed after failed commit: %q", data)
	}
}

func TestPersister_ReloadMissingFile(t *testing.T) {
	_, err := NewPersister().Reload(filepath.Join(t.TempDir(), "nope.csv"), &testCodec{})
	var pe *PersistError
	if !errors.As(err, &pe) || pe.Op != "reload" {
		t.Errorf("Reload() error = %v, want PersistError(reload)", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Reload() error does not wrap os.ErrNotExist: %v", err)
	}
}

func TestPersister_LockHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")

	held := flock.New(path + ".lock")
	if err := held.Lock(); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	defer held.Unlock()

	p := &Persister{LockTimeout: 100 * time.Millisecond}
	err := p.Commit(sampleTable(), path, &testCodec{})
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Errorf("Commit() with held lock error = %v, want PersistError", err)
	}
}

func TestPersister_ReloadFailureKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewPersister().CommitAndReload(sampleTable(), path, &testCodec{garbled: true})
	var pe *PersistError
	if !errors.As(err, &pe) || pe.Op != "reload" {
		t.Fatalf("CommitAndReload() error = %v, want PersistError(reload)", err)
	}
	if pe.Path != path {
		t.Errorf("PersistError.Path = %q, want %q", pe.Path, path)
	}

	data, _ := os.ReadFile(path)
	if string(data) != sampleCSV {
		t.Errorf("backing file changed after failed reload: %q", data)
	}
	if _, err := NewPersister().Reload(path, &testCodec{}); err != nil {
		t.Errorf("Reload() of kept file error = %v", err)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestPersister_CheckFailureKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	rejected := errors.New("rejected")

	var checked *Table
	_, err := NewPersister().CommitChecked(NewTable([]string{"CODE LOCAL"}), path, &testCodec{}, func(t *Table) error {
		checked = t
		return rejected
	})
	if err != rejected {
		t.Fatalf("CommitChecked() error = %v, want the check's error", err)
	}
	if checked == nil || checked.Len() != 0 {
		t.Errorf("check saw %v, want the reloaded empty table", checked)
	}

	data, _ := os.ReadFile(path)
	if string(data) != sampleCSV {
		t.Errorf("backing file changed after failed check: %q", data)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestPersister_InvalidValueIsNotPersistError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")

	err := NewPersister().Commit(sampleTable(), path, &testCodec{invalid: true})
	var ive *InvalidValueError
	if !errors.As(err, &ive) {
		t.Fatalf("Commit() error = %v, want InvalidValueError", err)
	}
	if IsPersistError(err) {
		t.Errorf("Commit() error %v is also a PersistError", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("backing file created after rejected value: %v", err)
	}
}

func TestPersister_HoldExcludesOtherWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	owner := &Persister{LockTimeout: 100 * time.Millisecond}
	other := &Persister{LockTimeout: 100 * time.Millisecond}

	release, err := owner.Hold(path)
	if err != nil {
		t.Fatalf("Hold() error = %v", err)
	}

	if _, err := other.Hold(path); err == nil {
		t.Error("second Hold() on a held path succeeded")
	}
	err = other.Commit(sampleTable(), path, &testCodec{})
	var pe *PersistError
	if !errors.As(err, &pe) || pe.Op != "lock" {
		t.Errorf("Commit() by another writer error = %v, want PersistError(lock)", err)
	}

	// the holder commits without locking again
	if _, err := owner.CommitAndReload(sampleTable(), path, &testCodec{}); err != nil {
		t.Errorf("CommitAndReload() by holder error = %v", err)
	}

	release()
	release()
	if err := other.Commit(sampleTable(), path, &testCodec{}); err != nil {
		t.Errorf("Commit() after release error = %v", err)
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
