package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/kivo360/clarity/core"
)

// ThoughtStore is the SQLite-backed core.ThoughtStore. Ids come from the
// thoughts table's AUTOINCREMENT column, monotonic within the database.
type ThoughtStore struct {
	db *sql.DB
}

const thoughtColumns = `id, session_id, branch_id, thought_number, total_thoughts, content,
	revises_thought, branch_from_thought, next_thought_needed, metadata, created_at`

// Save persists a new thought and returns it with its assigned id.
func (s *ThoughtStore) Save(ctx context.Context, t *core.Thought) (*core.Thought, error) {
	if t.SessionID == "" {
		return nil, core.NewValidationError("session_id", "required")
	}
	if t.ThoughtNumber < 1 {
		return nil, core.NewValidationError("thought_number", "must be >= 1")
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	meta, err := marshalMetadata(t.Metadata)
	if err != nil {
		return nil, core.NewStorageError("save thought: encode metadata", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO thoughts (session_id, branch_id, thought_number, total_thoughts, content,
			revises_thought, branch_from_thought, next_thought_needed, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SessionID, t.BranchID, t.ThoughtNumber, t.TotalThoughts, t.Content,
		t.RevisesThought, t.BranchFromThought, boolToInt(t.NextThoughtNeeded), meta, formatTime(created),
	)
	if err != nil {
		return nil, mapExecError("save thought", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, core.NewStorageError("save thought: last insert id", err)
	}

	stored := t.Clone()
	stored.ID = id
	stored.CreatedAt = created
	return stored, nil
}

// Get returns one thought of the session by id.
func (s *ThoughtStore) Get(ctx context.Context, sessionID string, id int64) (*core.Thought, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+thoughtColumns+` FROM thoughts WHERE session_id = ? AND id = ?`, sessionID, id)
	t, err := scanThought(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewThoughtNotFoundError(id)
	}
	return t, err
}

// ListBySession returns every thought of the session in creation order.
func (s *ThoughtStore) ListBySession(ctx context.Context, sessionID string) ([]*core.Thought, error) {
	return s.query(ctx, `
		SELECT `+thoughtColumns+` FROM thoughts WHERE session_id = ? ORDER BY id`, sessionID)
}

// ListByBranch returns the thoughts of one branch ordered by thought_number.
func (s *ThoughtStore) ListByBranch(ctx context.Context, sessionID, branchID string) ([]*core.Thought, error) {
	return s.query(ctx, `
		SELECT `+thoughtColumns+` FROM thoughts
		WHERE session_id = ? AND branch_id = ? ORDER BY thought_number`, sessionID, branchID)
}

// LatestForBranch returns the branch tip or a not-found error for an empty branch.
func (s *ThoughtStore) LatestForBranch(ctx context.Context, sessionID, branchID string) (*core.Thought, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+thoughtColumns+` FROM thoughts
		WHERE session_id = ? AND branch_id = ?
		ORDER BY thought_number DESC LIMIT 1`, sessionID, branchID)
	t, err := scanThought(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError(sessionID+"/"+branchID, "branch has no thoughts")
	}
	return t, err
}

// Update attaches cross-references; content and thought_number never change.
func (s *ThoughtStore) Update(ctx context.Context, sessionID string, id int64, upd core.ThoughtUpdate) (*core.Thought, error) {
	t, err := s.Get(ctx, sessionID, id)
	if err != nil {
		return nil, err
	}
	if upd.RevisesThought != nil {
		v := *upd.RevisesThought
		t.RevisesThought = &v
	}
	if upd.BranchFromThought != nil {
		v := *upd.BranchFromThought
		t.BranchFromThought = &v
	}
	for k, v := range upd.Metadata {
		if t.Metadata == nil {
			t.Metadata = make(map[string]string)
		}
		t.Metadata[k] = v
	}
	meta, err := marshalMetadata(t.Metadata)
	if err != nil {
		return nil, core.NewStorageError("update thought: encode metadata", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE thoughts SET revises_thought = ?, branch_from_thought = ?, metadata = ?
		WHERE session_id = ? AND id = ?`,
		t.RevisesThought, t.BranchFromThought, meta, sessionID, id,
	)
	if err != nil {
		return nil, core.NewStorageError("update thought", err)
	}
	return t, nil
}

// CountBySession returns the total number of thoughts in the session.
func (s *ThoughtStore) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM thoughts WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, core.NewStorageError("count thoughts", err)
	}
	return n, nil
}

// Search performs a substring match over content and metadata, creation order.
func (s *ThoughtStore) Search(ctx context.Context, sessionID, query string, limit int) ([]*core.Thought, error) {
	if limit <= 0 {
		limit = -1
	}
	pattern := "%" + query + "%"
	return s.query(ctx, `
		SELECT `+thoughtColumns+` FROM thoughts
		WHERE session_id = ? AND (content LIKE ? OR metadata LIKE ?)
		ORDER BY id LIMIT ?`, sessionID, pattern, pattern, limit)
}

// DeleteBySession removes every thought of the session.
func (s *ThoughtStore) DeleteBySession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM thoughts WHERE session_id = ?`, sessionID); err != nil {
		return core.NewStorageError("delete session thoughts", err)
	}
	return nil
}

func (s *ThoughtStore) query(ctx context.Context, query string, args ...any) ([]*core.Thought, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewStorageError("query thoughts", err)
	}
	defer rows.Close()

	out := make([]*core.Thought, 0)
	for rows.Next() {
		t, err := scanThought(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("query thoughts", err)
	}
	return out, nil
}

func scanThought(row rowScanner) (*core.Thought, error) {
	var t core.Thought
	var revises, fork sql.NullInt64
	var needed int
	var meta, created string
	err := row.Scan(&t.ID, &t.SessionID, &t.BranchID, &t.ThoughtNumber, &t.TotalThoughts, &t.Content,
		&revises, &fork, &needed, &meta, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, core.NewStorageError("scan thought", err)
	}
	if revises.Valid {
		t.RevisesThought = &revises.Int64
	}
	if fork.Valid {
		t.BranchFromThought = &fork.Int64
	}
	t.NextThoughtNeeded = needed != 0
	if err := json.Unmarshal([]byte(meta), &t.Metadata); err != nil {
		return nil, core.NewStorageError("scan thought: metadata", err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return nil, core.NewStorageError("scan thought: created_at", err)
	}
	return &t, nil
}
