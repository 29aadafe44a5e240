package transcriptstore

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"appforge/internal/chat"
)

func TestStore_AppendPreservesOrder(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "transcripts.json"))

	first := []chat.Entry{
		chat.NewEntry(chat.RoleUser, "make it blue", "t1"),
		chat.NewEntry(chat.RoleAssistant, "done", "t1"),
	}
	second := []chat.Entry{
		chat.NewEntry(chat.RoleUser, "now green", "t2"),
		chat.NewEntry(chat.RoleAssistant, "done again", "t2"),
	}
	if err := s.Append("chat-1", first); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if err := s.Append("chat-1", second); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	got, err := s.Load("chat-1")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(got))
	}
	wantContent := []string{"make it blue", "done", "now green", "done again"}
	for i, w := range wantContent {
		if got[i].Content != w {
			t.Fatalf("entry %d: got %q want %q", i, got[i].Content, w)
		}
	}
}

func TestStore_MissingChatIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "transcripts.json"))
	got, err := s.Load("nobody")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("missing chats load empty, got %d entries", len(got))
	}
}

func TestStore_LoadReturnsACopy(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "transcripts.json"))
	if err := s.Append("chat-1", []chat.Entry{chat.NewEntry(chat.RoleUser, "original", "t1")}); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	got, err := s.Load("chat-1")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	got[0].Content = "mutated"

	again, err := s.Load("chat-1")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if again[0].Content != "original" {
		t.Fatalf("callers must not be able to mutate stored entries")
	}
}

func TestStore_FilePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.json")

	s := New(path)
	if err := s.Append("chat-1", []chat.Entry{
		chat.NewEntry(chat.RoleUser, "persist me", "t1"),
		chat.NewEntry(chat.RoleAssistant, "will do", "t1"),
	}); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	reopened := New(path)
	got, err := reopened.Load("chat-1")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != 2 || got[0].Content != "persist me" {
		t.Fatalf("reopened store lost data: %+v", got)
	}
}

func TestNewFromEnv_LogsPostgresFallback(t *testing.T) {
	t.Setenv("TRANSCRIPT_STORE_PG_DSN", "://not-a-valid-dsn")

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "transcripts.json")
	s := NewFromEnv(path)

	if !strings.Contains(buf.String(), "postgres unavailable") {
		t.Fatalf("fallback must be logged, got %q", buf.String())
	}

	// The fallback store still works.
	if err := s.Append("chat-1", []chat.Entry{chat.NewEntry(chat.RoleUser, "still here", "t1")}); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	got, err := s.Load("chat-1")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
}

func TestStore_BlankChatIDIsIgnored(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "transcripts.json"))
	if err := s.Append("  ", []chat.Entry{chat.NewEntry(chat.RoleUser, "lost", "t1")}); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	got, err := s.Load("  ")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("blank chat ids never persist, got %d entries", len(got))
	}
}
