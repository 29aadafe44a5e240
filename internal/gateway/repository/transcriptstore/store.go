package transcriptstore

import (
	"database/sql"
	"log"
	"os"
	"strings"
	"sync"

	"appforge/internal/chat"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store persists conversation transcripts. It runs on Postgres when a DSN
// is configured and falls back to a JSON file otherwise; both backends
// append a turn's entries atomically so a fallback-path pair is never half
// written.
type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	byChat   map[string][]chat.Entry

	schemaOnce sync.Once
	schemaErr  error

	cache *lru.Cache[string, []chat.Entry]
}

func New(path string) *Store {
	return &Store{
		path:   path,
		byChat: make(map[string][]chat.Entry),
	}
}

func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, []chat.Entry](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:    db,
		cache: cache,
	}, nil
}

func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("TRANSCRIPT_STORE_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		log.Printf("transcriptstore: postgres unavailable, using file backend at %s: %v", path, err)
		return New(path)
	}
	return s
}

// Load returns the ordered transcript for chatID. A missing chat yields an
// empty transcript, never an error.
func (s *Store) Load(chatID string) ([]chat.Entry, error) {
	if s == nil {
		return nil, nil
	}
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, nil
	}
	if s.db != nil {
		if s.cache != nil {
			if cached, ok := s.cache.Get(chatID); ok {
				return cloneEntries(cached), nil
			}
		}
		entries, err := s.loadDB(chatID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Add(chatID, cloneEntries(entries))
		}
		return entries, nil
	}
	return s.loadFile(chatID), nil
}

// Append persists entries at the end of chatID's transcript, preserving
// insertion order.
func (s *Store) Append(chatID string, entries []chat.Entry) error {
	if s == nil {
		return nil
	}
	chatID = strings.TrimSpace(chatID)
	if chatID == "" || len(entries) == 0 {
		return nil
	}
	if s.db != nil {
		if err := s.appendDB(chatID, entries); err != nil {
			return err
		}
		if s.cache != nil {
			s.cache.Remove(chatID)
		}
		return nil
	}
	s.appendFile(chatID, entries)
	return nil
}

func cloneEntries(entries []chat.Entry) []chat.Entry {
	out := make([]chat.Entry, len(entries))
	copy(out, entries)
	return out
}
