package templates

import (
	"context"
	"io"

	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/a-h/templ"
)

// FilterState is the filter currently applied to the table.
type FilterState struct {
	Column string
	Value  string
	Where  string
}

// Active reports whether any filter is set.
func (f FilterState) Active() bool {
	return f.Column != "" || f.Where != ""
}

// PageData is everything the editor page shows.
type PageData struct {
	View    *core.TableView // nil before the first import
	Values  []string        // distinct values of Filter.Column
	Filter  FilterState
	Edit    core.Record // record being edited, if any
	Error   *core.UserMessage
	Notice  string
	Imports []core.ImportEvent
}

const styles = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2933}
table{border-collapse:collapse;margin:1rem 0}th,td{border:1px solid #cbd2d9;padding:.3rem .6rem}
th.key{background:#e4e7eb}.alert{padding:.6rem;margin:.6rem 0;border-radius:4px}
.alert-error{background:#fde8e8}.alert-info{background:#e3f8ff}.inline{display:inline}
.record-form label{display:block;margin:.2rem 0}.warn{color:#b44d12}`

// Page renders the full editor document.
func Page(p PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<!DOCTYPE html><html lang="fr"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>Gestion des données</title><style>` + styles + `</style></head><body>`)
		h.raw(`<h1>Gestion des données</h1>`)

		if p.Error != nil {
			h.child(ErrorAlert(p.Error.Message, p.Error.Action, p.Error.Code))
		}
		if p.Notice != "" {
			h.child(Notice(p.Notice))
		}

		h.raw(`<form method="post" action="/import" enctype="multipart/form-data" class="import">`)
		h.raw(`<label>Spreadsheet (.xlsx, .csv) <input type="file" name="file" accept=".xlsx,.csv" required></label> `)
		h.raw(`<button type="submit">Import</button></form>`)

		if p.View == nil {
			h.raw(`<p>Import a spreadsheet to begin.</p>`)
		} else {
			h.raw(`<p>`)
			h.text(p.View.FileName)
			h.raw(` &middot; <a href="/download">Download</a></p>`)
			filterForm(h, p)
			h.child(Table(p.View))
			h.child(RecordForm(p.View.Columns, p.View.KeyColumn, p.Edit))
		}

		h.child(ImportHistory(p.Imports))
		h.raw(`</body></html>`)
		return h.err
	})
}

func filterForm(h *htmlWriter, p PageData) {
	h.raw(`<form method="get" action="/" class="filter"><label>Column <select name="column"><option value="">(all)</option>`)
	for _, col := range p.View.Columns {
		sel := ""
		if col == p.Filter.Column {
			sel = " selected"
		}
		h.rawf(`<option value="%s"%s>`, esc(col), sel)
		h.text(col)
		h.raw(`</option>`)
	}
	h.raw(`</select></label> `)

	if len(p.Values) > 0 {
		h.raw(`<label>Value <select name="value">`)
		for _, v := range p.Values {
			sel := ""
			if v == p.Filter.Value {
				sel = " selected"
			}
			h.rawf(`<option value="%s"%s>`, esc(v), sel)
			h.text(v)
			h.raw(`</option>`)
		}
		h.raw(`</select></label> `)
	} else {
		h.rawf(`<label>Value <input type="text" name="value" value="%s"></label> `, esc(p.Filter.Value))
	}

	h.rawf(`<label>Expression <input type="text" name="where" value="%s" placeholder='STATUT == "actif"'></label> `, esc(p.Filter.Where))
	h.raw(`<button type="submit">Filter</button>`)
	if p.Filter.Active() {
		h.raw(` <a href="/">Clear</a>`)
	}
	h.raw(`</form>`)
}
