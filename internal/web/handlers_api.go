package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/sheetedit/internal/core"
)

// maxRecordBody bounds JSON record bodies.
const maxRecordBody = 1 << 20

// handleColumns returns the column names in order and the key column.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	columns, err := s.service.Columns(sessionID(r))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"keyColumn": s.service.KeyColumn(),
		"columns":   columns,
	})
}

// handleColumnValues returns the distinct values of a column.
func (s *Server) handleColumnValues(w http.ResponseWriter, r *http.Request) {
	column, err := pathParam(r, "column")
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	values, err := s.service.DistinctValues(sessionID(r), column)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"column": column,
		"values": values,
	})
}

// handleListRecords returns the table, filtered by ?where= or by
// ?column=&value= when given.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sid := sessionID(r)

	var (
		view *core.TableView
		err  error
	)
	switch {
	case q.Get("where") != "":
		view, err = s.service.Where(sid, q.Get("where"))
	case q.Get("column") != "":
		view, err = s.service.Filter(sid, q.Get("column"), q.Get("value"))
	default:
		view, err = s.service.View(sid)
	}
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// handleGetRecord returns one record by key.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	key, err := recordKey(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	rec, err := s.service.Get(sessionID(r), key)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

// handleAddRecord inserts the record in the JSON body.
func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(w, r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	sid := sessionID(r)
	if err := s.service.Add(r.Context(), sid, rec); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	stored, err := s.service.Get(sid, rec[s.service.KeyColumn()])
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	w.Header().Set("Location", "/api/records/"+url.PathEscape(stored[s.service.KeyColumn()]))
	writeJSON(w, r, http.StatusCreated, stored)
}

// handleUpdateRecord applies the fields in the JSON body to a record.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	key, err := recordKey(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	updates, err := decodeRecord(w, r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	sid := sessionID(r)
	if err := s.service.Update(r.Context(), sid, key, updates); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if newKey, ok := updates[s.service.KeyColumn()]; ok {
		key = newKey
	}
	stored, err := s.service.Get(sid, key)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, stored)
}

// handleDeleteRecord removes every record with the key. Deleting a
// missing key succeeds with deleted=0.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	key, err := recordKey(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	removed, err := s.service.Delete(r.Context(), sessionID(r), key)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"deleted": removed})
}

// handleImports returns the most recent imports, newest first.
func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, r, fmt.Errorf("%w: limit must be a positive integer", errBadRequest), http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := s.service.RecentImports(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

// decodeRecord reads a JSON object of column name to value. Strings,
// numbers and booleans are stored as text and null as the empty value.
func decodeRecord(w http.ResponseWriter, r *http.Request) (core.Record, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRecordBody)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", errBadRequest)
	}

	rec := make(core.Record, len(raw))
	for col, v := range raw {
		switch v := v.(type) {
		case string:
			rec[col] = v
		case json.Number:
			rec[col] = v.String()
		case bool:
			rec[col] = strconv.FormatBool(v)
		case nil:
			rec[col] = ""
		default:
			return nil, fmt.Errorf("%w: value of %q must be a string, number, boolean or null", errBadRequest, col)
		}
	}
	return rec, nil
}
