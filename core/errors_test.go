package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodes(t *testing.T) {
	assert.True(t, IsValidation(NewValidationError("tool_name", "required on create")))
	assert.True(t, IsNotFound(NewNotFoundError("s1", "session not found")))
	assert.True(t, IsConflict(NewConflictError("s1/main", "sequence slot taken")))
	assert.True(t, IsStorage(NewStorageError("save thought", fmt.Errorf("disk full"))))
}

func TestNewStorageError_TimeoutClassification(t *testing.T) {
	err := NewStorageError("get session", context.DeadlineExceeded)
	assert.True(t, IsStorageTimeout(err))
	assert.False(t, IsStorage(err))
}

func TestNotFoundSentinels(t *testing.T) {
	sessErr := NewSessionNotFoundError("s1")
	assert.True(t, IsNotFound(sessErr))
	assert.ErrorIs(t, sessErr, ErrSessionNotFound)
	assert.Contains(t, sessErr.Error(), "s1")

	thoughtErr := NewThoughtNotFoundError(42)
	assert.True(t, IsNotFound(thoughtErr))
	assert.ErrorIs(t, thoughtErr, ErrThoughtNotFound)
	assert.Contains(t, thoughtErr.Error(), "42")
}

func TestErrorCodes_SurviveWrapping(t *testing.T) {
	inner := NewNotFoundError("42", "thought not found")
	wrapped := fmt.Errorf("process thought: %w", inner)

	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, ErrorCodeNotFound, CodeOf(wrapped))
}

func TestError_MessageIncludesContext(t *testing.T) {
	err := NewValidationError("revises_thought", "referenced thought not in branch")
	assert.Contains(t, err.Error(), "validation")
	assert.Contains(t, err.Error(), "revises_thought")
}

func TestThoughtRequest_NeedsNext_DefaultsTrue(t *testing.T) {
	req := &ThoughtRequest{}
	assert.True(t, req.NeedsNext())

	no := false
	req.NextThoughtNeeded = &no
	assert.False(t, req.NeedsNext())
}
