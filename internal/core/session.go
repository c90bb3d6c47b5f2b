package core

// session.go holds per-session pipeline state.
//
// A Session carries the last loaded input and a single result slot. The slot
// is overwritten by every successful run and left untouched by failed ones.
// Sessions live in a SessionStore keyed by random UUIDs and expire after an
// idle TTL; nothing is persisted.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 2 * time.Hour

// SessionResult is the content of a session's result slot.
type SessionResult struct {
	Table     *Table
	InputName string
	Unit      string
	At        time.Time
}

// Filename returns the download name for the result.
func (r SessionResult) Filename() string {
	return ExportFilename(r.InputName, r.Unit)
}

// Session is the state of one user session. It is safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	lastSeen  time.Time
	input     *Table
	inputName string
	selected  string
	result    *SessionResult
	flash     *UserMessage
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		lastSeen:  now,
	}
}

// SetInput replaces the loaded input table.
func (s *Session) SetInput(name string, t *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = t
	s.inputName = name
}

// ClearInput forgets the loaded input table.
func (s *Session) ClearInput() {
	s.SetInput("", nil)
}

// Input returns the loaded input table and its file name, or nil.
func (s *Session) Input() (*Table, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input, s.inputName
}

// SetSelected remembers the transform chosen in the UI.
func (s *Session) SetSelected(unit string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = unit
}

// Selected returns the transform chosen in the UI.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// SetResult overwrites the result slot unconditionally.
func (s *Session) SetResult(t *Table, inputName, unit string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = &SessionResult{Table: t, InputName: inputName, Unit: unit, At: time.Now()}
}

// Result returns the result slot. ok is false when the slot is empty.
func (s *Session) Result() (SessionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return SessionResult{}, false
	}
	return *s.result, true
}

// SetFlash stores a message to show on the next page render.
func (s *Session) SetFlash(msg UserMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = &msg
}

// TakeFlash returns and clears the pending message.
func (s *Session) TakeFlash() (UserMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flash == nil {
		return UserMessage{}, false
	}
	msg := *s.flash
	s.flash = nil
	return msg, true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionStore keeps sessions in memory, keyed by ID.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore creates a store whose sessions expire after ttl of inactivity.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// TTL returns the idle timeout.
func (st *SessionStore) TTL() time.Duration { return st.ttl }

// Create starts a new session.
func (st *SessionStore) Create() *Session {
	sess := newSession(st.now())

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

// Get returns a live session and marks it as used.
// Expired sessions are removed and reported as missing.
func (st *SessionStore) Get(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	if sess.idleSince(now) > st.ttl {
		delete(st.sessions, id)
		return nil, false
	}
	sess.touch(now)
	return sess, true
}

// GetOrCreate returns the session for id, or a new one when id is unknown
// or expired. created reports whether a new session was started.
func (st *SessionStore) GetOrCreate(id string) (sess *Session, created bool) {
	if sess, ok := st.Get(id); ok {
		return sess, false
	}
	return st.Create(), true
}

// Delete removes a session.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of stored sessions, expired ones included until swept.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (st *SessionStore) Sweep() int {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, sess := range st.sessions {
		if sess.idleSince(now) > st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (st *SessionStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = st.ttl / 4
	}
	slog.Info("session sweeper started", "ttl", st.ttl, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if removed := st.Sweep(); removed > 0 {
				slog.Debug("expired sessions removed", "removed", removed, "remaining", st.Len())
			}
		}
	}
}
