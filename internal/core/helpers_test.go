package core

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
)

// testCodec is a plain comma-separated codec with switchable failures.
type testCodec struct {
	mu         sync.Mutex
	failEncode bool
	upperCase  bool // normalises values on encode
	garbled    bool // writes output Decode rejects
	invalid    bool // rejects every value as unstorable
}

func (c *testCodec) Name() string         { return "test" }
func (c *testCodec) DownloadName() string { return "updated_data.csv" }
func (c *testCodec) ContentType() string  { return "text/csv" }

func (c *testCodec) setFailEncode(v bool) {
	c.mu.Lock()
	c.failEncode = v
	c.mu.Unlock()
}

func (c *testCodec) Decode(r io.Reader) (*Table, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("no header")
	}
	return NewTableFromRows(rows[0], rows[1:]), nil
}

func (c *testCodec) set(fn func(*testCodec)) {
	c.mu.Lock()
	fn(c)
	c.mu.Unlock()
}

func (c *testCodec) Encode(w io.Writer, t *Table) error {
	c.mu.Lock()
	fail, upper, garbled, invalid := c.failEncode, c.upperCase, c.garbled, c.invalid
	c.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	if invalid {
		return &InvalidValueError{Column: t.Columns()[0], Reason: "not storable"}
	}
	if garbled {
		_, err := io.WriteString(w, "CODE LOCAL\n\"unterminated\n")
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	for _, row := range t.Rows() {
		if upper {
			for i := range row {
				row[i] = strings.ToUpper(row[i])
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// memIndex is an in-memory SessionIndex.
type memIndex struct {
	mu    sync.Mutex
	items map[string]SessionInfo
}

func newMemIndex() *memIndex { return &memIndex{items: map[string]SessionInfo{}} }

func (m *memIndex) Put(info SessionInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[info.ID] = info
	return nil
}

func (m *memIndex) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memIndex) All() ([]SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionInfo, 0, len(m.items))
	for _, info := range m.items {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memHistory is an in-memory ImportRecorder.
type memHistory struct {
	mu     sync.Mutex
	events []ImportEvent
}

func (m *memHistory) RecordImport(_ context.Context, ev ImportEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memHistory) RecentImports(_ context.Context, limit int) ([]ImportEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ImportEvent, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

// sampleTable returns keys A1, A2, A3 with a STATUT column.
func sampleTable() *Table {
	return NewTableFromRows(
		[]string{"CODE LOCAL", "NOM", "STATUT"},
		[][]string{
			{"A1", "Paris", "actif"},
			{"A2", "Lyon", "inactif"},
			{"A3", "Nantes", "actif"},
		},
	)
}

func sampleStore(t *testing.T) *RecordStore {
	t.Helper()
	s, err := NewRecordStore(sampleTable(), DefaultKeyColumn)
	if err != nil {
		t.Fatalf("NewRecordStore() error = %v", err)
	}
	return s
}

func keys(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r[DefaultKeyColumn]
	}
	return out
}

const sampleCSV = "CODE LOCAL,NOM,STATUT\nA1,Paris,actif\nA2,Lyon,inactif\nA3,Nantes,actif\n"
