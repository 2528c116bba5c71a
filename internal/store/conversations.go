package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const DefaultListLimit = 50

const conversationColumns = "id, title, provider, created_at, updated_at, metadata"

type ConversationRepository struct {
	db *DB
}

// Create inserts c. An empty ID is filled with a new UUID and zero
// timestamps are set to now, both written back into c.
func (r *ConversationRepository) Create(ctx context.Context, c *Conversation) error {
	return createConversation(ctx, r.db.sql, c)
}

// CreateWithMessages inserts c together with c.Messages as one atomic unit.
// Each message's ConversationID is set to c.ID. Either everything is
// persisted or nothing is.
func (r *ConversationRepository) CreateWithMessages(ctx context.Context, c *Conversation) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := createConversation(ctx, tx, c); err != nil {
			return err
		}
		for i := range c.Messages {
			m := &c.Messages[i]
			m.ConversationID = c.ID
			if err := insertMessage(ctx, tx, m); err != nil {
				return err
			}
		}
		r.db.logger.Debug("created conversation", "id", c.ID, "messages", len(c.Messages))
		return nil
	})
}

func createConversation(ctx context.Context, q execer, c *Conversation) error {
	if c.ID == "" {
		c.ID = generateID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	meta, err := c.Metadata.encode()
	if err != nil {
		return err
	}
	created, err := encodeTime(c.CreatedAt)
	if err != nil {
		return fmt.Errorf("conversation %q created_at: %w", c.ID, err)
	}
	updated, err := encodeTime(c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("conversation %q updated_at: %w", c.ID, err)
	}

	_, err = q.ExecContext(ctx,
		"INSERT INTO conversations ("+conversationColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		c.ID, c.Title, c.Provider, created, updated, meta,
	)
	if err != nil {
		return classify(fmt.Sprintf("insert conversation %q", c.ID), err)
	}
	return nil
}

func (r *ConversationRepository) Get(ctx context.Context, id string) (*Conversation, error) {
	return getConversation(ctx, r.db.sql, id)
}

func getConversation(ctx context.Context, q execer, id string) (*Conversation, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE id = ?", id,
	)
	c, err := scanConversation(row)
	if err != nil {
		return nil, classify(fmt.Sprintf("get conversation %q", id), err)
	}
	return c, nil
}

// List returns a page of conversations, most recently updated first. Ties on
// updated_at are broken by id so that pages never overlap.
func (r *ConversationRepository) List(ctx context.Context, f ListFilter) ([]Conversation, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + conversationColumns + " FROM conversations"
	var args []any
	if f.Provider != "" {
		query += " WHERE provider = ?"
		args = append(args, f.Provider)
	}
	query += " ORDER BY updated_at DESC, id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list conversations", err)
	}
	defer rows.Close()

	convs := []Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, classify("scan conversation", err)
		}
		convs = append(convs, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list conversations", err)
	}
	return convs, nil
}

// Count returns the number of conversations, optionally restricted to one
// provider.
func (r *ConversationRepository) Count(ctx context.Context, provider string) (int, error) {
	query := "SELECT COUNT(*) FROM conversations"
	var args []any
	if provider != "" {
		query += " WHERE provider = ?"
		args = append(args, provider)
	}
	var n int
	if err := r.db.sql.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify("count conversations", err)
	}
	return n, nil
}

func (r *ConversationRepository) Providers(ctx context.Context) ([]ProviderCount, error) {
	rows, err := r.db.sql.QueryContext(ctx,
		"SELECT provider, COUNT(*) FROM conversations GROUP BY provider ORDER BY provider",
	)
	if err != nil {
		return nil, classify("list providers", err)
	}
	defer rows.Close()

	out := []ProviderCount{}
	for rows.Next() {
		var pc ProviderCount
		if err := rows.Scan(&pc.Provider, &pc.Conversations); err != nil {
			return nil, classify("scan provider", err)
		}
		out = append(out, pc)
	}
	return out, classify("list providers", rows.Err())
}

// Update applies the non-nil fields of patch and bumps updated_at.
func (r *ConversationRepository) Update(ctx context.Context, id string, patch ConversationPatch) (*Conversation, error) {
	var out *Conversation
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		c, err := getConversation(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.Title != nil {
			c.Title = *patch.Title
		}
		if patch.Metadata != nil {
			c.Metadata = *patch.Metadata
		}
		meta, err := c.Metadata.encode()
		if err != nil {
			return err
		}
		c.UpdatedAt = bump(c.UpdatedAt)
		updated, err := encodeTime(c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update conversation %q: %w", id, err)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE conversations SET title = ?, metadata = ?, updated_at = ? WHERE id = ?",
			c.Title, meta, updated, id,
		)
		if err != nil {
			return classify(fmt.Sprintf("update conversation %q", id), err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the conversation. Its messages and their search index
// entries go with it through the foreign key cascade, in the same statement.
func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.sql.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return classify(fmt.Sprintf("delete conversation %q", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(fmt.Sprintf("delete conversation %q", id), err)
	}
	if n == 0 {
		return fmt.Errorf("delete conversation %q: %w", id, ErrNotFound)
	}
	r.db.logger.Debug("deleted conversation", "id", id)
	return nil
}

// touchConversation bumps updated_at after one of its messages changed.
func touchConversation(ctx context.Context, tx *sql.Tx, id string) error {
	c, err := getConversation(ctx, tx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("touch conversation %q: %w", id, ErrReferentialIntegrity)
		}
		return err
	}
	updated, err := encodeTime(bump(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("touch conversation %q: %w", id, err)
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE conversations SET updated_at = ? WHERE id = ?",
		updated, id,
	)
	return classify(fmt.Sprintf("touch conversation %q", id), err)
}

// bump returns now, or one nanosecond past prev if the clock has not moved
// past it, so updated_at is strictly increasing per row.
func bump(prev time.Time) time.Time {
	t := now()
	if !t.After(prev) {
		t = prev.Add(time.Nanosecond)
	}
	return t
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(s rowScanner) (*Conversation, error) {
	var (
		c                Conversation
		created, updated string
		meta             string
	)
	if err := s.Scan(&c.ID, &c.Title, &c.Provider, &created, &updated, &meta); err != nil {
		return nil, err
	}
	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	if c.Metadata, err = decodeMetadata(meta); err != nil {
		return nil, err
	}
	return &c, nil
}

func generateID() string {
	return uuid.NewString()
}
