package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/sheetedit/internal/core"
)

func sampleView() *core.TableView {
	return &core.TableView{
		SessionID: "s1",
		FileName:  "clients.xlsx",
		KeyColumn: "CODE LOCAL",
		Columns:   []string{"CODE LOCAL", "NOM"},
		Records: []core.Record{
			{"CODE LOCAL": "A/1", "NOM": "<b>Paris</b>"},
		},
	}
}

func TestTable_EscapesValues(t *testing.T) {
	var buf bytes.Buffer
	if err := Table(sampleView()).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	if strings.Contains(out, "<b>Paris</b>") {
		t.Error("cell value not escaped")
	}
	if !strings.Contains(out, "&lt;b&gt;Paris&lt;/b&gt;") {
		t.Errorf("escaped value missing: %s", out)
	}
	if !strings.Contains(out, `action="/records/A%2F1/delete"`) {
		t.Errorf("delete action does not escape the key: %s", out)
	}
	if !strings.Contains(out, "1 record(s)") {
		t.Errorf("record count missing: %s", out)
	}
}

func TestPage_States(t *testing.T) {
	tests := []struct {
		name    string
		data    PageData
		want    []string
		notWant []string
	}{
		{
			name:    "before import",
			data:    PageData{},
			want:    []string{"Import a spreadsheet to begin", `action="/import"`},
			notWant: []string{"/download"},
		},
		{
			name: "with table and edit",
			data: PageData{
				View:   sampleView(),
				Filter: FilterState{Column: "NOM"},
				Values: []string{"Lyon", "Paris"},
				Edit:   core.Record{"CODE LOCAL": "A/1", "NOM": "Paris"},
			},
			want: []string{"/download", `<option value="NOM" selected>`, `action="/records/A%2F1"`, "Save", "Clear"},
		},
		{
			name: "error and history",
			data: PageData{
				Error:   &core.UserMessage{Message: "Bad file", Action: "Retry", Code: "IMP001"},
				Imports: []core.ImportEvent{{FileName: "old.csv", Rows: 4, DuplicateKeys: 1, ImportedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)}},
			},
			want: []string{"Bad file", "IMP001", "old.csv", "2024-03-01 09:30", "1 duplicate key(s)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Page(tt.data).Render(context.Background(), &buf); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			out := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("page missing %q", s)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(out, s) {
					t.Errorf("page unexpectedly contains %q", s)
				}
			}
		})
	}
}
