package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/seralba/vitala-health-agent/internal/llm"
)

// Store is a SQLite-backed session archive. It is a layered external
// storage concern: the in-memory session remains authoritative and the
// store is written behind on turn commit, then read once on restore.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the session database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tool_calls TEXT,
		tool_call_id TEXT,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);

	CREATE TABLE IF NOT EXISTS symptoms (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		logged_at TIMESTAMP NOT NULL,
		description TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_symptoms_session ON symptoms(session_id, logged_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTurn appends one committed turn's messages and symptoms in a
// single transaction.
func (s *Store) SaveTurn(sessionID string, messages []llm.Message, symptoms []SymptomEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	_, err = tx.Exec(`
		INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at
	`, sessionID, now, now)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	var seq int
	if err := tx.QueryRow(`
		SELECT COALESCE(MAX(seq), -1) FROM messages WHERE session_id = ?
	`, sessionID).Scan(&seq); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	for _, m := range messages {
		seq++
		var toolCalls any
		if len(m.ToolCalls) > 0 {
			encoded, err := json.Marshal(m.ToolCalls)
			if err != nil {
				return fmt.Errorf("encode tool calls: %w", err)
			}
			toolCalls = string(encoded)
		}
		_, err = tx.Exec(`
			INSERT INTO messages (id, session_id, seq, role, content, tool_calls, tool_call_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), sessionID, seq, m.Role, m.Content, toolCalls, m.ToolCallID, now)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	for _, e := range symptoms {
		_, err = tx.Exec(`
			INSERT INTO symptoms (id, session_id, logged_at, description)
			VALUES (?, ?, ?, ?)
		`, uuid.NewString(), sessionID, e.Timestamp, e.Description)
		if err != nil {
			return fmt.Errorf("insert symptom: %w", err)
		}
	}

	return tx.Commit()
}

// Load returns a persisted session's messages and symptoms in their
// original order. A session with no rows returns empty slices.
func (s *Store) Load(sessionID string) ([]llm.Message, []SymptomEntry, error) {
	rows, err := s.db.Query(`
		SELECT role, content, tool_calls, tool_call_id
		FROM messages WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var m llm.Message
		var toolCalls sql.NullString
		if err := rows.Scan(&m.Role, &m.Content, &toolCalls, &m.ToolCallID); err != nil {
			return nil, nil, fmt.Errorf("scan message: %w", err)
		}
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &m.ToolCalls); err != nil {
				return nil, nil, fmt.Errorf("decode tool calls: %w", err)
			}
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate messages: %w", err)
	}

	symptomRows, err := s.db.Query(`
		SELECT logged_at, description
		FROM symptoms WHERE session_id = ? ORDER BY logged_at
	`, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("query symptoms: %w", err)
	}
	defer symptomRows.Close()

	var symptoms []SymptomEntry
	for symptomRows.Next() {
		var e SymptomEntry
		if err := symptomRows.Scan(&e.Timestamp, &e.Description); err != nil {
			return nil, nil, fmt.Errorf("scan symptom: %w", err)
		}
		symptoms = append(symptoms, e)
	}
	if err := symptomRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate symptoms: %w", err)
	}

	return messages, symptoms, nil
}
