package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"procura-backend/internal/assistant"
	"procura-backend/internal/db"
)

// ArchiveStore keeps a durable copy of conversation messages in PostgreSQL.
// The live session state stays in MemoryStore.
type ArchiveStore struct {
	db *db.DB
}

func NewArchiveStore(database *db.DB) *ArchiveStore {
	return &ArchiveStore{db: database}
}

// ArchivedMessage is a stored message row.
type ArchivedMessage struct {
	SessionID string
	MessageID string
	Sender    string
	Content   string
	Intent    string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// SaveMessages inserts msgs for the session in one transaction. Messages
// already archived are skipped.
func (as *ArchiveStore) SaveMessages(ctx context.Context, sessionID string, msgs ...assistant.Message) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	tx, err := as.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	query := `
		INSERT INTO conversation_messages (session_id, message_id, sender, content, intent, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (message_id) DO NOTHING
	`
	for _, m := range msgs {
		var payload []byte
		if m.Payload != nil {
			if payload, err = json.Marshal(m.Payload); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to encode payload: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, query, sessionID, m.ID, string(m.Sender), m.Content, string(m.Intent), nullableJSON(payload), m.Timestamp); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to archive message: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}
	return nil
}

// ListMessages returns up to limit messages for a session, oldest first.
func (as *ArchiveStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]ArchivedMessage, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT session_id, message_id, sender, content, intent, COALESCE(payload::text, ''), created_at
		FROM (
			SELECT * FROM conversation_messages
			WHERE session_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC
	`
	rows, err := as.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived messages: %w", err)
	}
	defer rows.Close()

	var out []ArchivedMessage
	for rows.Next() {
		var m ArchivedMessage
		var payload string
		if err := rows.Scan(&m.SessionID, &m.MessageID, &m.Sender, &m.Content, &m.Intent, &payload, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archived message: %w", err)
		}
		if payload != "" {
			m.Payload = json.RawMessage(payload)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteSession removes every archived message of a session.
func (as *ArchiveStore) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if _, err := as.db.ExecContext(ctx, `DELETE FROM conversation_messages WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete archived session: %w", err)
	}
	return nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
