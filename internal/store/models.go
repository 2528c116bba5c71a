package store

import (
	"encoding/json"
	"fmt"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

func (r Role) String() string {
	return string(r)
}

// Metadata is the provider-specific extension payload, persisted as JSON.
type Metadata map[string]any

func (m Metadata) encode() (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("%w: encode metadata: %v", ErrSerialization, err)
	}
	return string(b), nil
}

func decodeMetadata(raw string) (Metadata, error) {
	m := Metadata{}
	if raw == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("%w: decode metadata: %v", ErrSerialization, err)
	}
	return m, nil
}

type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Metadata  Metadata  `json:"metadata"`

	// Messages is only filled by parsers for ingest. Get never loads it.
	Messages []Message `json:"messages,omitempty"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Metadata       Metadata  `json:"metadata"`
}

// ConversationPatch lists the mutable conversation fields. Nil means unchanged.
type ConversationPatch struct {
	Title    *string
	Metadata *Metadata
}

// MessagePatch lists the mutable message fields. Nil means unchanged.
type MessagePatch struct {
	Role     *Role
	Content  *string
	Metadata *Metadata
}

type ListFilter struct {
	Provider string
	Limit    int
	Offset   int
}

type ProviderCount struct {
	Provider      string `json:"provider"`
	Conversations int    `json:"conversations"`
}

// SearchHit is a message matched by full-text search, joined with its
// conversation.
type SearchHit struct {
	Message
	ConversationTitle string  `json:"conversation_title"`
	Provider          string  `json:"provider"`
	Rank              float64 `json:"rank"`
	Snippet           string  `json:"snippet"`
}

// timeLayout is fixed width so that text order equals time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// encodeTime is formatTime for caller-supplied values. Years outside
// 0000-9999 do not fit timeLayout and would be unreadable once stored.
func encodeTime(t time.Time) (string, error) {
	if y := t.UTC().Year(); y < 0 || y > 9999 {
		return "", fmt.Errorf("%w: timestamp %s outside years 0000-9999", ErrSerialization, t.UTC().Format(time.RFC3339))
	}
	return formatTime(t), nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// rows written by other tools may use plain RFC 3339
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: parse timestamp %q: %v", ErrSerialization, s, err)
		}
	}
	return t.UTC(), nil
}

// now is replaced in tests that need deterministic clocks.
var now = func() time.Time {
	return time.Now().UTC()
}
