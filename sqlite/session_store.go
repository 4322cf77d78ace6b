package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/kivo360/clarity/core"
)

// SessionStore is the SQLite-backed core.SessionStore.
type SessionStore struct {
	db *sql.DB
}

// Create persists a new session, rejecting duplicate ids.
func (s *SessionStore) Create(ctx context.Context, sess *core.Session) (*core.Session, error) {
	meta, err := marshalMetadata(sess.Metadata)
	if err != nil {
		return nil, core.NewStorageError("create session: encode metadata", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, tool_name, created_at, updated_at, active, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ToolName, formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt), boolToInt(sess.Active), meta,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return nil, core.NewValidationError("session_id", "session already exists")
		}
		return nil, core.NewStorageError("create session", err)
	}
	return sess.Clone(), nil
}

// Get returns the session or a not-found error.
func (s *SessionStore) Get(ctx context.Context, id string) (*core.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tool_name, created_at, updated_at, active, metadata
		FROM sessions WHERE id = ?`, id)
	return scanSession(row, id)
}

// Update applies a partial field merge and bumps updated_at.
func (s *SessionStore) Update(ctx context.Context, id string, upd core.SessionUpdate) (*core.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Active != nil {
		sess.Active = *upd.Active
	}
	for k, v := range upd.Metadata {
		if sess.Metadata == nil {
			sess.Metadata = make(map[string]string)
		}
		sess.Metadata[k] = v
	}
	sess.Touch(time.Now().UTC())

	meta, err := marshalMetadata(sess.Metadata)
	if err != nil {
		return nil, core.NewStorageError("update session: encode metadata", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE sessions SET updated_at = ?, active = ?, metadata = ? WHERE id = ?`,
		formatTime(sess.UpdatedAt), boolToInt(sess.Active), meta, id,
	)
	if err != nil {
		return nil, core.NewStorageError("update session", err)
	}
	return sess, nil
}

// Delete removes the session, cascading to its thoughts.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return core.NewStorageError("delete session", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.NewStorageError("delete session", err)
	}
	if n == 0 {
		return core.NewSessionNotFoundError(id)
	}
	return nil
}

// List returns sessions matching the filter ordered by created_at.
func (s *SessionStore) List(ctx context.Context, f core.SessionFilter) ([]*core.Session, error) {
	query := `SELECT id, tool_name, created_at, updated_at, active, metadata FROM sessions WHERE 1=1`
	args := make([]any, 0, 4)
	if f.ToolName != "" {
		query += ` AND tool_name = ?`
		args = append(args, f.ToolName)
	}
	if f.Active != nil {
		query += ` AND active = ?`
		args = append(args, boolToInt(*f.Active))
	}
	query += ` ORDER BY created_at, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	} else if f.Offset > 0 {
		query += ` LIMIT -1`
	}
	if f.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewStorageError("list sessions", err)
	}
	defer rows.Close()

	out := make([]*core.Session, 0)
	for rows.Next() {
		sess, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("list sessions", err)
	}
	return out, nil
}

// Cleanup removes sessions idle longer than the given age and returns their ids.
func (s *SessionStore) Cleanup(ctx context.Context, olderThan time.Duration) ([]string, error) {
	cutoff := formatTime(time.Now().UTC().Add(-olderThan))

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions WHERE updated_at < ? ORDER BY id`, cutoff)
	if err != nil {
		return nil, core.NewStorageError("cleanup sessions: select", err)
	}
	defer rows.Close()

	removed := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, core.NewStorageError("cleanup sessions: scan", err)
		}
		removed = append(removed, id)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("cleanup sessions", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff); err != nil {
		return nil, core.NewStorageError("cleanup sessions: delete", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row *sql.Row, id string) (*core.Session, error) {
	sess, err := scanSessionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewSessionNotFoundError(id)
	}
	return sess, err
}

func scanSessionRow(row rowScanner) (*core.Session, error) {
	var sess core.Session
	var created, updated, meta string
	var active int
	if err := row.Scan(&sess.ID, &sess.ToolName, &created, &updated, &active, &meta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, core.NewStorageError("scan session", err)
	}
	var err error
	if sess.CreatedAt, err = parseTime(created); err != nil {
		return nil, core.NewStorageError("scan session: created_at", err)
	}
	if sess.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, core.NewStorageError("scan session: updated_at", err)
	}
	sess.Active = active != 0
	if err := json.Unmarshal([]byte(meta), &sess.Metadata); err != nil {
		return nil, core.NewStorageError("scan session: metadata", err)
	}
	return &sess, nil
}

func marshalMetadata(m map[string]string) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
