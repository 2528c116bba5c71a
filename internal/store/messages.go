package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const DefaultSearchLimit = 20

const messageColumns = "m.id, m.conversation_id, m.role, m.content, m.timestamp, m.metadata"

type MessageRepository struct {
	db *DB
}

// Create inserts m and bumps its conversation's updated_at in one
// transaction. The search index picks the row up through messages_ai.
func (r *MessageRepository) Create(ctx context.Context, m *Message) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := insertMessage(ctx, tx, m); err != nil {
			return err
		}
		return touchConversation(ctx, tx, m.ConversationID)
	})
}

func insertMessage(ctx context.Context, q execer, m *Message) error {
	if m.ID == "" {
		m.ID = generateID()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = now()
	}
	meta, err := m.Metadata.encode()
	if err != nil {
		return err
	}
	ts, err := encodeTime(m.Timestamp)
	if err != nil {
		return fmt.Errorf("message %q: %w", m.ID, err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, timestamp, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, string(m.Role), m.Content, ts, meta,
	)
	if err != nil {
		return classify(fmt.Sprintf("insert message %q", m.ID), err)
	}
	return nil
}

func (r *MessageRepository) Get(ctx context.Context, id string) (*Message, error) {
	return getMessage(ctx, r.db.sql, id)
}

func getMessage(ctx context.Context, q execer, id string) (*Message, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+messageColumns+" FROM messages m WHERE m.id = ?", id,
	)
	m, err := scanMessage(row)
	if err != nil {
		return nil, classify(fmt.Sprintf("get message %q", id), err)
	}
	return m, nil
}

// ListByConversation returns every message of the conversation in timestamp
// order. Messages sharing a timestamp keep their insertion order. An unknown
// or empty conversation yields an empty slice.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := r.db.sql.QueryContext(ctx,
		"SELECT "+messageColumns+` FROM messages m
		 WHERE m.conversation_id = ?
		 ORDER BY m.timestamp ASC, m.rowid ASC`,
		conversationID,
	)
	if err != nil {
		return nil, classify("list messages", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, classify("scan message", err)
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list messages", err)
	}
	return msgs, nil
}

func (r *MessageRepository) Count(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conversationID,
	).Scan(&n)
	if err != nil {
		return 0, classify("count messages", err)
	}
	return n, nil
}

// Search runs an FTS5 MATCH over message content. Hits are ordered best
// first by bm25, then newest first. query uses FTS5 query syntax; a
// malformed query fails with ErrQuery and a blank one matches nothing.
func (r *MessageRepository) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	hits := []SearchHit{}
	if strings.TrimSpace(query) == "" {
		return hits, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	rows, err := r.db.sql.QueryContext(ctx,
		"SELECT "+messageColumns+`,
			c.title, c.provider,
			bm25(messages_fts) AS score,
			snippet(messages_fts, 0, '[', ']', '...', 12)
		 FROM messages_fts
		 JOIN messages m ON m.rowid = messages_fts.rowid
		 JOIN conversations c ON c.id = m.conversation_id
		 WHERE messages_fts MATCH ?
		 ORDER BY score ASC, m.timestamp DESC
		 LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, classify(fmt.Sprintf("search %q", query), err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			h                  SearchHit
			role, ts, metadata string
		)
		err := rows.Scan(
			&h.ID, &h.ConversationID, &role, &h.Content, &ts, &metadata,
			&h.ConversationTitle, &h.Provider, &h.Rank, &h.Snippet,
		)
		if err != nil {
			return nil, classify("scan search hit", err)
		}
		if err := fillMessage(&h.Message, role, ts, metadata); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Sprintf("search %q", query), err)
	}
	return hits, nil
}

// Update applies the non-nil fields of patch. A content change replaces the
// message's index entry through messages_au within the same statement.
func (r *MessageRepository) Update(ctx context.Context, id string, patch MessagePatch) (*Message, error) {
	var out *Message
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		m, err := getMessage(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.Role != nil {
			m.Role = *patch.Role
		}
		if patch.Content != nil {
			m.Content = *patch.Content
		}
		if patch.Metadata != nil {
			m.Metadata = *patch.Metadata
		}
		meta, err := m.Metadata.encode()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE messages SET role = ?, content = ?, metadata = ? WHERE id = ?",
			string(m.Role), m.Content, meta, id,
		)
		if err != nil {
			return classify(fmt.Sprintf("update message %q", id), err)
		}
		if err := touchConversation(ctx, tx, m.ConversationID); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the message; messages_ad drops its index entry.
func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		m, err := getMessage(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id); err != nil {
			return classify(fmt.Sprintf("delete message %q", id), err)
		}
		return touchConversation(ctx, tx, m.ConversationID)
	})
}

func scanMessage(s rowScanner) (*Message, error) {
	var (
		m                  Message
		role, ts, metadata string
	)
	if err := s.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &ts, &metadata); err != nil {
		return nil, err
	}
	if err := fillMessage(&m, role, ts, metadata); err != nil {
		return nil, err
	}
	return &m, nil
}

func fillMessage(m *Message, role, ts, metadata string) error {
	m.Role = Role(role)
	t, err := parseTime(ts)
	if err != nil {
		return err
	}
	m.Timestamp = t
	meta, err := decodeMetadata(metadata)
	if err != nil {
		return err
	}
	m.Metadata = meta
	return nil
}
