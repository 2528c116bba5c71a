package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("already exists")
	ErrReferentialIntegrity = errors.New("referenced conversation does not exist")
	ErrConnection           = errors.New("database connection error")
	ErrQuery                = errors.New("query error")
	ErrSerialization        = errors.New("serialization error")
)

// IsRetryable reports whether err is a transient connection failure, such as
// pool exhaustion or a busy database. Caller cancellation is not retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnection)
}

// classify maps a driver error onto one of the package error kinds. op is
// used as the message prefix.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrConflict, ErrReferentialIntegrity, ErrConnection, ErrQuery, ErrSerialization} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %v", op, ErrConnection, err)
	}

	var serr *sqlite.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		switch code {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%s: %w", op, ErrConflict)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s: %w", op, ErrReferentialIntegrity)
		}
		switch code & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			msg := serr.Error()
			switch {
			case strings.Contains(msg, "FOREIGN KEY"):
				return fmt.Errorf("%s: %w", op, ErrReferentialIntegrity)
			case strings.Contains(msg, "UNIQUE"), strings.Contains(msg, "PRIMARY KEY"):
				return fmt.Errorf("%s: %w", op, ErrConflict)
			}
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN,
			sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_IOERR:
			return fmt.Errorf("%s: %w: %v", op, ErrConnection, err)
		}
	}
	return fmt.Errorf("%s: %w: %v", op, ErrQuery, err)
}
