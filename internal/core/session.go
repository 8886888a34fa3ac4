package core

import (
	"sort"
	"sync"
	"time"
)

// Session is the state of one user's import: the live record store and
// the file it is persisted to. A Session value is never mutated after it
// is published; mutations publish a new one.
type Session struct {
	ID        string
	FileName  string // name the user imported, used for display
	Path      string // backing file, fixed for the session's lifetime
	Codec     Codec
	Store     *RecordStore
	CreatedAt time.Time
	UpdatedAt time.Time
}

// with returns a copy of s holding store.
func (s *Session) with(store *RecordStore) *Session {
	next := *s
	next.Store = store
	next.UpdatedAt = time.Now()
	return &next
}

type sessionSlot struct {
	mu      sync.Mutex // serialises operations on one session
	current *Session
}

// Sessions maps session ids to their state. Operations on one session are
// serialised; different sessions proceed independently.
type Sessions struct {
	mu    sync.RWMutex
	slots map[string]*sessionSlot
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{slots: make(map[string]*sessionSlot)}
}

// Start installs s under s.ID, replacing any previous state for that id.
func (r *Sessions) Start(s *Session) {
	slot := r.slot(s.ID, true)
	slot.mu.Lock()
	slot.current = s
	slot.mu.Unlock()
}

// Current returns the state held for id.
func (r *Sessions) Current(id string) (*Session, bool) {
	slot := r.slot(id, false)
	if slot == nil {
		return nil, false
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.current, slot.current != nil
}

// Update runs fn with exclusive access to the session and publishes the
// session it returns. When fn fails the previous state is kept.
func (r *Sessions) Update(id string, fn func(*Session) (*Session, error)) error {
	slot := r.slot(id, false)
	if slot == nil {
		return ErrNoSession
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.current == nil {
		return ErrNoSession
	}
	next, err := fn(slot.current)
	if err != nil {
		return err
	}
	slot.current = next
	return nil
}

// Drop forgets the session.
func (r *Sessions) Drop(id string) {
	r.mu.Lock()
	delete(r.slots, id)
	r.mu.Unlock()
}

// IDs returns the ids of all sessions, sorted.
func (r *Sessions) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.slots))
	for id := range r.slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of sessions.
func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}

func (r *Sessions) slot(id string, create bool) *sessionSlot {
	r.mu.RLock()
	slot, ok := r.slots[id]
	r.mu.RUnlock()
	if ok || !create {
		return slot
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok = r.slots[id]; ok {
		return slot
	}
	slot = &sessionSlot{}
	r.slots[id] = slot
	return slot
}
