package chat

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Entry is one immutable message in a conversation transcript.
// ConversationID is assigned at creation and never mutated; it correlates
// entries and streamed chunks emitted within the same turn.
type Entry struct {
	Role           Role   `json:"role"`
	Content        string `json:"content"`
	ConversationID string `json:"conversationId"`
}

// NewEntry builds a transcript entry.
func NewEntry(role Role, content, conversationID string) Entry {
	return Entry{Role: role, Content: content, ConversationID: conversationID}
}

// appendEntries returns past ++ added without mutating past. The processor
// treats the incoming transcript as read-only input.
func appendEntries(past []Entry, added ...Entry) []Entry {
	out := make([]Entry, 0, len(past)+len(added))
	out = append(out, past...)
	out = append(out, added...)
	return out
}
