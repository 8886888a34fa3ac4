// Package templates holds the HTML components of the editor UI.
//
// Components are templ.Component values built with templ.ComponentFunc, so
// handlers render them the same way whether they return a full page or a
// fragment.
package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"
)

// htmlWriter keeps the first write error so components can emit markup
// without checking every call.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newWriter(ctx context.Context, w io.Writer) *htmlWriter {
	if ctx == nil {
		ctx = context.Background()
	}
	return &htmlWriter{ctx: ctx, w: w}
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

// text writes s HTML-escaped.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) child(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

func esc(s string) string { return templ.EscapeString(s) }

// RecordPath returns the path of a record under prefix, escaping the key.
func RecordPath(prefix, key string) string {
	return prefix + "/" + url.PathEscape(key)
}
