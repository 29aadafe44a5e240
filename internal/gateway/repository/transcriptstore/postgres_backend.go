package transcriptstore

import (
	"appforge/internal/chat"
)

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS transcript_entries (
  id BIGSERIAL PRIMARY KEY,
  chat_id TEXT NOT NULL,
  role TEXT NOT NULL,
  content TEXT NOT NULL DEFAULT '',
  conversation_id TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transcript_entries_chat_id ON transcript_entries (chat_id, id);
`)
	})
	return s.schemaErr
}

func (s *Store) loadDB(chatID string) ([]chat.Entry, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`
SELECT role, content, conversation_id
FROM transcript_entries
WHERE chat_id = $1
ORDER BY id ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]chat.Entry, 0, 32)
	for rows.Next() {
		var role, content, convID string
		if err := rows.Scan(&role, &content, &convID); err != nil {
			return nil, err
		}
		out = append(out, chat.Entry{Role: chat.Role(role), Content: content, ConversationID: convID})
	}
	return out, rows.Err()
}

// appendDB writes all entries in one transaction so a turn's user/assistant
// pair lands atomically.
func (s *Store) appendDB(chatID string, entries []chat.Entry) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		if _, err := tx.Exec(`
INSERT INTO transcript_entries (chat_id, role, content, conversation_id)
VALUES ($1, $2, $3, $4)`,
			chatID, string(e.Role), e.Content, e.ConversationID); err != nil {
			return err
		}
	}
	return tx.Commit()
}
