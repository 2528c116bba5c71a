package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

const (
	DefaultMaxConns    = 5
	DefaultBusyTimeout = 5 * time.Second
)

// DB owns the connection pool shared by the repositories.
type DB struct {
	sql    *sql.DB
	path   string
	logger *log.Logger

	conversations *ConversationRepository
	messages      *MessageRepository
}

type options struct {
	maxConns    int
	busyTimeout time.Duration
	logger      *log.Logger
}

type Option func(*options)

// WithMaxConns bounds the pool. SQLite serializes writers regardless, so
// extra connections only buy read concurrency.
func WithMaxConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConns = n
		}
	}
}

// WithBusyTimeout sets how long a writer waits on the database lock before
// failing with a retryable ErrConnection.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.busyTimeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Open opens (creating if needed) the database file at path and applies the
// schema. All failures are reported as ErrConnection. Paths containing '?'
// or '#' are rejected since the driver would read them as DSN parameters.
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	o := options{
		maxConns:    DefaultMaxConns,
		busyTimeout: DefaultBusyTimeout,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrConnection)
	}
	if strings.ContainsAny(path, "?#") {
		return nil, fmt.Errorf("%w: database path %q must not contain '?' or '#'", ErrConnection, path)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create database dir: %v", ErrConnection, err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path, o.busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrConnection, err)
	}
	db.SetMaxOpenConns(o.maxConns)
	db.SetMaxIdleConns(o.maxConns)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect %s: %v", ErrConnection, path, err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	o.logger.Debug("opened database", "path", path, "max_conns", o.maxConns)

	d := &DB{sql: db, path: path, logger: o.logger}
	d.conversations = &ConversationRepository{db: d}
	d.messages = &MessageRepository{db: d}
	return d, nil
}

// dsn carries the pragmas in the connection string so that every pooled
// connection gets them, not just the first one.
func dsn(path string, busy time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout("+strconv.FormatInt(busy.Milliseconds(), 10)+")")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Set("_txlock", "immediate")
	return path + "?" + q.Encode()
}

func (d *DB) Close() error {
	return d.sql.Close()
}

// SQL exposes the pool for callers that need raw access.
func (d *DB) SQL() *sql.DB {
	return d.sql
}

func (d *DB) Path() string {
	return d.path
}

func (d *DB) Conversations() *ConversationRepository {
	return d.conversations
}

func (d *DB) Messages() *MessageRepository {
	return d.messages
}

// WithTx runs fn in a single transaction. It commits when fn returns nil and
// rolls back otherwise, including on panic.
func (d *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin tx", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
