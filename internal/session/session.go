package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/seralba/vitala-health-agent/internal/llm"
)

// Session holds one conversation's state. All mutation goes through a
// Turn so that a failed turn leaves both the history and the symptom
// log exactly as they were.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	messages  []llm.Message
	symptoms  []SymptomEntry
	updatedAt time.Time
}

// newSession creates an empty session.
func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		updatedAt: now,
	}
}

// History returns a copy of the committed message history.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Symptoms returns a copy of the committed symptom log, in insertion
// order. Reading never mutates state.
func (s *Session) Symptoms() []SymptomEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SymptomEntry, len(s.symptoms))
	copy(out, s.symptoms)
	return out
}

// UpdatedAt returns the time of the last committed turn.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Begin opens a turn against the session. The turn stages all appends;
// nothing reaches the session until Commit.
func (s *Session) Begin() *Turn {
	return &Turn{session: s}
}

// Turn stages one conversational turn's writes. Discarding a turn
// without committing it discards every staged message and symptom,
// which is exactly the abort semantics a failed backend call needs.
type Turn struct {
	session  *Session
	messages []llm.Message
	symptoms []SymptomEntry
}

// SessionID returns the owning session's ID.
func (t *Turn) SessionID() string {
	return t.session.ID
}

// History returns committed history plus the messages staged so far.
func (t *Turn) History() []llm.Message {
	return append(t.session.History(), t.messages...)
}

// Append stages a message.
func (t *Turn) Append(m llm.Message) {
	t.messages = append(t.messages, m)
}

// LogSymptom stages a symptom entry and returns it.
func (t *Turn) LogSymptom(description string) SymptomEntry {
	entry := SymptomEntry{
		Timestamp:   time.Now(),
		Description: description,
	}
	t.symptoms = append(t.symptoms, entry)
	return entry
}

// Symptoms returns the committed log plus entries staged in this turn,
// so a show_symptoms call sees a log_symptom from the same turn.
func (t *Turn) Symptoms() []SymptomEntry {
	return append(t.session.Symptoms(), t.symptoms...)
}

// Commit applies the staged messages and symptoms to the session.
func (t *Turn) Commit() {
	s := t.session
	s.mu.Lock()
	s.messages = append(s.messages, t.messages...)
	s.symptoms = append(s.symptoms, t.symptoms...)
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// Summary is a read-only view of a session for listings.
type Summary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  int       `json:"messages"`
	Symptoms  int       `json:"symptoms"`
}

// Manager hands out sessions keyed by ID. Sessions live for the
// process lifetime; the optional store persists committed turns and
// restores sessions across restarts.
type Manager struct {
	logger *slog.Logger
	store  *Store // nil when persistence is disabled

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager. store may be nil.
func NewManager(store *Store, logger *slog.Logger) *Manager {
	return &Manager{
		logger:   logger,
		store:    store,
		sessions: make(map[string]*Session),
	}
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// GetOrCreate returns the session for id, restoring it from the store
// if one was persisted, or creating it fresh. An empty id gets a new
// random one.
func (m *Manager) GetOrCreate(id string) *Session {
	if id == "" {
		id = NewID()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s
	}

	s := newSession(id)
	if m.store != nil {
		messages, symptoms, err := m.store.Load(id)
		if err != nil {
			m.logger.Warn("session restore failed", "session", id, "error", err)
		} else if len(messages) > 0 || len(symptoms) > 0 {
			s.messages = messages
			s.symptoms = symptoms
			m.logger.Info("session restored", "session", id,
				"messages", len(messages), "symptoms", len(symptoms))
		}
	}

	m.sessions[id] = s
	return s
}

// Get returns an existing session without creating one.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// List returns summaries for all live sessions.
func (m *Manager) List() []Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Summary, 0, len(m.sessions))
	for _, s := range m.sessions {
		s.mu.Lock()
		out = append(out, Summary{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.updatedAt,
			Messages:  len(s.messages),
			Symptoms:  len(s.symptoms),
		})
		s.mu.Unlock()
	}
	return out
}

// Persist writes a committed turn through to the store, if configured.
// Persistence failures are logged, not surfaced: the in-memory session
// remains the source of truth for the process lifetime.
func (m *Manager) Persist(t *Turn) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveTurn(t.SessionID(), t.messages, t.symptoms); err != nil {
		m.logger.Warn("session persist failed", "session", t.SessionID(), "error", err)
	}
}
