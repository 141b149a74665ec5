package database_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *database.Store {
	t.Helper()
	s, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "executor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCheckerValidation(t *testing.T) {
	c := database.Checker{Name: "", ClassName: "TrimChecker"}
	require.ErrorIs(t, c.Validate(), database.ErrInvalidChecker)

	c.Name = strings.Repeat("ā", database.CheckerNameMaxLength)
	require.NoError(t, c.Validate())

	c.Name += "a"
	require.ErrorIs(t, c.Validate(), database.ErrInvalidChecker)

	c = database.Checker{Name: "trim"}
	require.ErrorIs(t, c.Validate(), database.ErrInvalidChecker)
}

func TestCheckers(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	c := &database.Checker{Name: "Numbers", ClassName: "PrecisionChecker", Parameter: "4"}
	require.NoError(t, s.InsertChecker(ctx, c))
	require.NotZero(t, c.ID)

	require.Error(t, s.InsertChecker(ctx, &database.Checker{Name: "Numbers", ClassName: "TrimChecker"}))

	className, param, ok, err := s.ResolveChecker(ctx, "Numbers")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "PrecisionChecker", className)
	assert.Equal(t, "4", param)

	_, _, ok, err = s.ResolveChecker(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.DeleteChecker(ctx, c.ID))
	require.ErrorIs(t, s.DeleteChecker(ctx, c.ID), database.ErrNotFound)

	_, err = s.CheckerByName(ctx, "Numbers")
	require.ErrorIs(t, err, database.ErrNotFound)

	// the name is free again after a soft delete
	require.NoError(t, s.InsertChecker(ctx, &database.Checker{Name: "Numbers", ClassName: "TrimChecker"}))
	list, err := s.ListCheckers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "TrimChecker", list[0].ClassName)
}

func TestTestRuns(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.InsertTestRun(ctx, &database.TestRun{SubmissionID: "a", TestID: 1, ResultType: api.CorrectAnswer}))
	require.NoError(t, s.InsertTestRun(ctx, &database.TestRun{SubmissionID: "a", TestID: 2, ResultType: api.TimeLimit,
		TimeUsed: 100, CheckerComment: "c"}))
	require.NoError(t, s.InsertTestRun(ctx, &database.TestRun{SubmissionID: "b", TestID: 1}))

	runs, err := s.TestRunsBySubmission(ctx, "a")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 2, runs[1].TestID)
	assert.Equal(t, api.TimeLimit, runs[1].ResultType)
	assert.Equal(t, 100, runs[1].TimeUsed)
	assert.Equal(t, "c", runs[1].CheckerComment)
	assert.False(t, runs[1].CreatedAt.IsZero())
}
