// Package ingest persists the conversations a provider parser produces.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"llmunify/internal/provider"
	"llmunify/internal/store"
)

type Result struct {
	Provider string
	Parsed   int
	Imported int
	Messages int
	// Skipped lists conversation ids already present in the store.
	Skipped []string
}

// Empty reports whether the parser produced no conversations at all. That is
// a valid outcome, distinct from a parse failure.
func (r *Result) Empty() bool {
	return r.Parsed == 0
}

type Importer struct {
	db     *store.DB
	logger *log.Logger
}

func New(db *store.DB, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Importer{db: db, logger: logger}
}

// Import parses raw with p and stores every conversation it yields, each
// together with its messages in one transaction. Conversations whose id
// already exists are skipped. Any other failure stops the import; those
// already committed stay.
func (im *Importer) Import(ctx context.Context, p provider.Parser, raw []byte) (*Result, error) {
	convs, err := p.Parse(raw)
	if err != nil {
		if !errors.Is(err, provider.ErrParse) {
			err = fmt.Errorf("%w: %w", provider.ErrParse, err)
		}
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}

	res := &Result{Provider: p.Name(), Parsed: len(convs)}
	if res.Empty() {
		im.logger.Info("export contained no conversations", "provider", p.Name(), "bytes", len(raw))
		return res, nil
	}

	for i := range convs {
		c := &convs[i]
		if err := p.Validate(c); err != nil {
			return res, fmt.Errorf("%s: validate conversation %q: %w", p.Name(), c.ID, err)
		}
		if c.Provider == "" {
			c.Provider = p.Name()
		}

		err := im.db.Conversations().CreateWithMessages(ctx, c)
		switch {
		case errors.Is(err, store.ErrConflict) && c.ID != "" && im.exists(ctx, c.ID):
			im.logger.Debug("skipping existing conversation", "id", c.ID)
			res.Skipped = append(res.Skipped, c.ID)
			continue
		case err != nil:
			return res, fmt.Errorf("%s: store conversation %q: %w", p.Name(), c.ID, err)
		}
		res.Imported++
		res.Messages += len(c.Messages)
	}

	im.logger.Info("imported export",
		"provider", res.Provider,
		"conversations", res.Imported,
		"messages", res.Messages,
		"skipped", len(res.Skipped),
	)
	return res, nil
}

// ImportFile reads the export at path and imports it with p.
func (im *Importer) ImportFile(ctx context.Context, p provider.Parser, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return im.Import(ctx, p, data)
}

// exists separates a duplicate conversation from a duplicate message id,
// which also surfaces as ErrConflict.
func (im *Importer) exists(ctx context.Context, id string) bool {
	_, err := im.db.Conversations().Get(ctx, id)
	return err == nil
}
