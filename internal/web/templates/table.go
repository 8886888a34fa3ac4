package templates

import (
	"context"
	"io"
	"net/url"

	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/a-h/templ"
)

// Table renders the records of view with edit and delete controls.
func Table(view *core.TableView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.rawf(`<p class="count">%d record(s)</p>`, len(view.Records))
		h.raw(`<table id="records"><thead><tr>`)
		for _, col := range view.Columns {
			if col == view.KeyColumn {
				h.raw(`<th class="key">`)
			} else {
				h.raw(`<th>`)
			}
			h.text(col)
			h.raw(`</th>`)
		}
		h.raw(`<th></th></tr></thead><tbody>`)

		for _, rec := range view.Records {
			key := rec[view.KeyColumn]
			h.raw(`<tr>`)
			for _, col := range view.Columns {
				h.raw(`<td>`)
				h.text(rec[col])
				h.raw(`</td>`)
			}
			h.rawf(`<td class="actions"><a href="/?edit=%s">Edit</a> `, esc(url.QueryEscape(key)))
			h.rawf(`<form method="post" action="%s/delete" class="inline">`, esc(RecordPath("/records", key)))
			h.raw(`<button type="submit">Delete</button></form></td></tr>`)
		}
		h.raw(`</tbody></table>`)
		return h.err
	})
}

// RecordForm renders the add form, or the edit form when rec is not nil.
func RecordForm(columns []string, keyColumn string, rec core.Record) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		if rec == nil {
			h.raw(`<form method="post" action="/records" class="record-form"><h2>Add a record</h2>`)
		} else {
			h.rawf(`<form method="post" action="%s" class="record-form"><h2>Edit `, esc(RecordPath("/records", rec[keyColumn])))
			h.text(rec[keyColumn])
			h.raw(`</h2>`)
		}

		for _, col := range columns {
			h.raw(`<label>`)
			h.text(col)
			h.rawf(` <input type="text" name="%s" value="%s"`, esc(col), esc(rec[col]))
			if col == keyColumn {
				h.raw(` required`)
			}
			h.raw(`></label>`)
		}

		if rec == nil {
			h.raw(`<button type="submit">Add</button>`)
		} else {
			h.raw(`<button type="submit">Save</button> <a href="/">Cancel</a>`)
		}
		h.raw(`</form>`)
		return h.err
	})
}

// ImportHistory renders the most recent imports.
func ImportHistory(events []core.ImportEvent) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		if len(events) == 0 {
			return nil
		}
		h.raw(`<section class="history"><h2>Recent imports</h2><ul>`)
		for _, ev := range events {
			h.raw(`<li>`)
			h.text(ev.ImportedAt.Format("2006-01-02 15:04"))
			h.raw(` &middot; `)
			h.text(ev.FileName)
			h.rawf(` &middot; %d rows`, ev.Rows)
			if ev.DuplicateKeys > 0 {
				h.rawf(` &middot; <span class="warn">%d duplicate key(s)</span>`, ev.DuplicateKeys)
			}
			h.raw(`</li>`)
		}
		h.raw(`</ul></section>`)
		return h.err
	})
}
