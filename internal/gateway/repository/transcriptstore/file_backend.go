package transcriptstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"appforge/internal/chat"
)

type fileRow struct {
	ChatID  string       `json:"chatId"`
	Entries []chat.Entry `json:"entries"`
}

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var rows []fileRow
		if err := json.Unmarshal(b, &rows); err != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, row := range rows {
			id := strings.TrimSpace(row.ChatID)
			if id == "" {
				continue
			}
			s.byChat[id] = row.Entries
		}
	})
}

func (s *Store) saveFile() {
	s.mu.RLock()
	rows := make([]fileRow, 0, len(s.byChat))
	for id, entries := range s.byChat {
		rows = append(rows, fileRow{ChatID: id, Entries: entries})
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(s.path), 0o755)
	_ = os.WriteFile(s.path, b, 0o644)
}

func (s *Store) loadFile(chatID string) []chat.Entry {
	s.ensureLoadedFile()
	s.mu.RLock()
	entries := s.byChat[chatID]
	s.mu.RUnlock()
	return cloneEntries(entries)
}

func (s *Store) appendFile(chatID string, entries []chat.Entry) {
	s.ensureLoadedFile()
	s.mu.Lock()
	s.byChat[chatID] = append(s.byChat[chatID], entries...)
	s.mu.Unlock()
	s.saveFile()
}
