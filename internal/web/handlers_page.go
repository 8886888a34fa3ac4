package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/sheetedit/internal/core"
	"github.com/JonMunkholm/sheetedit/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// recentImportsShown is the number of history entries on the page.
const recentImportsShown = 10

// handleIndex renders the editor page: the table, optionally filtered by
// column/value or by a where expression, and the add or edit form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := templates.PageData{
		Filter: templates.FilterState{
			Column: q.Get("column"),
			Value:  q.Get("value"),
			Where:  q.Get("where"),
		},
		Notice: importNotice(q),
	}

	status := http.StatusOK
	if err := s.loadPage(r, &data, q.Has("value"), q.Get("edit")); err != nil {
		status = statusFor(err)
		s.pageError(r, &data, err, status)
	}
	s.renderPage(w, r, status, data)
}

// loadPage fills data from the session. A session with nothing imported
// yet is not an error; the page then only offers the import form. When a
// filter or edit lookup fails the unfiltered table is kept in data.
func (s *Server) loadPage(r *http.Request, data *templates.PageData, filterByValue bool, editKey string) error {
	sid := sessionID(r)

	if imports, err := s.service.RecentImports(r.Context(), recentImportsShown); err != nil {
		requestLogger(r).Warn("import history unavailable", "error", err)
	} else {
		data.Imports = imports
	}

	view, err := s.service.View(sid)
	if errors.Is(err, core.ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	data.View = view

	f := data.Filter
	switch {
	case f.Where != "":
		filtered, err := s.service.Where(sid, f.Where)
		if err != nil {
			return err
		}
		data.View = filtered
	case f.Column != "":
		values, err := s.service.DistinctValues(sid, f.Column)
		if err != nil {
			return err
		}
		data.Values = values
		if filterByValue {
			filtered, err := s.service.Filter(sid, f.Column, f.Value)
			if err != nil {
				return err
			}
			data.View = filtered
		}
	}

	if editKey != "" {
		rec, err := s.service.Get(sid, editKey)
		if err != nil {
			return err
		}
		data.Edit = rec
	}
	return nil
}

func (s *Server) pageError(r *http.Request, data *templates.PageData, err error, status int) {
	msg := core.MapError(err)
	data.Error = &msg
	requestLogger(r).Warn("page error", "path", r.URL.Path, "status", status, "error", err, "code", msg.Code)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data templates.PageData) {
	var buf bytes.Buffer
	if err := templates.Page(data).Render(r.Context(), &buf); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// formError answers a failed form post. Browsers get the page back with
// the error shown above the table; API and HTMX clients get respondError.
func (s *Server) formError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if isHTMX(r) || wantsJSON(r) {
		respondError(w, r, err, status)
		return
	}

	var data templates.PageData
	if loadErr := s.loadPage(r, &data, false, ""); loadErr != nil {
		requestLogger(r).Warn("page reload failed", "error", loadErr)
	}
	s.pageError(r, &data, err, status)
	s.renderPage(w, r, status, data)
}

// handleImport accepts a multipart upload in the "file" field and makes it
// the session's table. Forms are redirected back to the page; JSON clients
// receive the import result.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Storage.MaxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			err = fmt.Errorf("%w: %v", core.ErrFileTooLarge, err)
		} else {
			err = fmt.Errorf("%w: %v", errBadRequest, err)
		}
		s.formError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.formError(w, r, errNoFile)
		return
	}
	defer file.Close()

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.Import(ctx, sessionID(r), header.Filename, file)
	if err != nil {
		s.formError(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, r, http.StatusCreated, result)
		return
	}

	q := url.Values{}
	q.Set("imported", strconv.Itoa(result.Rows))
	if len(result.DuplicateKeys) > 0 {
		q.Set("duplicates", strconv.Itoa(len(result.DuplicateKeys)))
	}
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}

func importNotice(q url.Values) string {
	rows, err := strconv.Atoi(q.Get("imported"))
	if err != nil {
		return ""
	}
	notice := fmt.Sprintf("Imported %d record(s).", rows)
	if dups, err := strconv.Atoi(q.Get("duplicates")); err == nil && dups > 0 {
		notice += fmt.Sprintf(" %d key(s) appear more than once; only the first record of each is editable.", dups)
	}
	return notice
}

// handleAddForm adds a record from the add form.
func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	rec, err := s.formRecord(r, false)
	if err == nil {
		err = s.service.Add(r.Context(), sessionID(r), rec)
	}
	if err != nil {
		s.formError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleUpdateForm saves the edit form of the record in the path.
func (s *Server) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	key, err := recordKey(r)
	if err != nil {
		s.formError(w, r, err)
		return
	}
	updates, err := s.formRecord(r, true)
	if err == nil {
		err = s.service.Update(r.Context(), sessionID(r), key, updates)
	}
	if err != nil {
		s.formError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleDeleteForm deletes the record in the path.
func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	key, err := recordKey(r)
	if err == nil {
		_, err = s.service.Delete(r.Context(), sessionID(r), key)
	}
	if err != nil {
		s.formError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// formRecord reads the session's columns from the posted form. With
// onlyPresent set, columns absent from the form are left out so an update
// keeps their value; otherwise they are stored empty.
func (s *Server) formRecord(r *http.Request, onlyPresent bool) (core.Record, error) {
	columns, err := s.service.Columns(sessionID(r))
	if err != nil {
		return nil, err
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	rec := make(core.Record, len(columns))
	for _, col := range columns {
		if _, ok := r.PostForm[col]; !ok && onlyPresent {
			continue
		}
		rec[col] = r.PostForm.Get(col)
	}
	return rec, nil
}

// recordKey returns the {key} path parameter.
func recordKey(r *http.Request) (string, error) {
	return pathParam(r, "key")
}

// pathParam returns a path parameter with escapes such as %2F decoded.
// chi matches on the raw path only when the request needed escaping.
func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}
	unescaped, err := url.PathUnescape(v)
	if err != nil {
		return "", fmt.Errorf("%w: bad %s: %v", errBadRequest, name, err)
	}
	return unescaped, nil
}

// handleDownload sends the session's table in its import format.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, contentType, err := s.service.Export(r.Context(), sessionID(r), &buf)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		requestLogger(r).Warn("download interrupted", "error", err)
	}
}

// handleHealth reports liveness and the number of open sessions.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"sessions":     s.service.SessionCount(),
		"import_slots": s.service.ImportSlots(),
	})
}
