package core

// TableView is a read-only snapshot of a session's table for display.
type TableView struct {
	SessionID string   `json:"sessionId"`
	FileName  string   `json:"fileName"`
	KeyColumn string   `json:"keyColumn"`
	Columns   []string `json:"columns"`
	Records   []Record `json:"records"`
}

// View returns every record of the session's table.
func (s *Service) View(sessionID string) (*TableView, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	return newView(sess, sess.Store.Table().Records()), nil
}

// Columns returns the session's column names in order.
func (s *Service) Columns(sessionID string) ([]string, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Store.Table().Columns(), nil
}

// DistinctValues returns the values present in column, used to offer
// filter choices.
func (s *Service) DistinctValues(sessionID, column string) ([]string, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	t := sess.Store.Table()
	if !t.HasColumn(column) {
		return nil, &UnknownColumnError{Column: column}
	}
	return t.DistinctValues(column), nil
}

// Filter returns the records whose column equals value.
func (s *Service) Filter(sessionID, column, value string) (*TableView, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	recs, err := sess.Store.Filter(column, value)
	if err != nil {
		return nil, err
	}
	return newView(sess, recs), nil
}

// Where returns the records matching a boolean expression.
func (s *Service) Where(sessionID, expression string) (*TableView, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	recs, err := sess.Store.Where(expression)
	if err != nil {
		return nil, err
	}
	return newView(sess, recs), nil
}

// Get returns the record identified by key.
func (s *Service) Get(sessionID, key string) (Record, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Store.Get(key)
}

func newView(sess *Session, recs []Record) *TableView {
	return &TableView{
		SessionID: sess.ID,
		FileName:  sess.FileName,
		KeyColumn: sess.Store.KeyColumn(),
		Columns:   sess.Store.Table().Columns(),
		Records:   recs,
	}
}
