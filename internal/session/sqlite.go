package session

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore persists sessions as JSON documents in a SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite creates or opens the database at path and applies the schema.
//
// The connection runs in WAL mode with a single writer and a 5 second busy
// timeout, so the interactive workers and the reconciler can share it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get loads the session for userID.
func (s *SQLiteStore) Get(ctx context.Context, userID int64) (*Session, error) {
	var (
		version int64
		payload string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, payload FROM sessions WHERE user_id = ?`, userID,
	).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %d: %w", userID, err)
	}
	return decode(payload, version)
}

// Save inserts or updates the session, checking its version.
func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	next := *sess
	next.Version = sess.Version + 1
	next.UpdatedAt = s.now().UTC()

	payload, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode session %d: %w", sess.UserID, err)
	}
	updatedAt := next.UpdatedAt.Format(time.RFC3339Nano)

	var res sql.Result
	if sess.Version == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO sessions (user_id, version, payload, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id) DO NOTHING`,
			sess.UserID, next.Version, string(payload), updatedAt)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE sessions SET version = ?, payload = ?, updated_at = ?
			 WHERE user_id = ? AND version = ?`,
			next.Version, string(payload), updatedAt, sess.UserID, sess.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to save session %d: %w", sess.UserID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save session %d: %w", sess.UserID, err)
	}
	if n == 0 {
		return ErrConflict
	}

	sess.Version = next.Version
	sess.UpdatedAt = next.UpdatedAt
	return nil
}

// List returns every stored session ordered by user id.
func (s *SQLiteStore) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version, payload FROM sessions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var (
			version int64
			payload string
		)
		if err := rows.Scan(&version, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess, err := decode(payload, version)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return out, nil
}

// Delete removes the session for userID.
func (s *SQLiteStore) Delete(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session %d: %w", userID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func decode(payload string, version int64) (*Session, error) {
	var sess Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	// The column is authoritative.
	sess.Version = version
	return &sess, nil
}
