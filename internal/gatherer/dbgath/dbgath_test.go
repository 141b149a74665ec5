package dbgath_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal"
	"github.com/programme-lv/executor/internal/database"
	"github.com/programme-lv/executor/internal/gatherer/dbgath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistsFinishedTests(t *testing.T) {
	ctx := context.Background()
	store, err := database.Open(ctx, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	g := dbgath.New(store, "sub-1", nil)
	g.ReachTest(internal.TestContext{ID: 1})
	g.FinishTest(internal.TestResult{ID: 1, ResultType: api.WrongAnswer,
		CheckerDetails: internal.CheckerDetails{Comment: "Wrong answer on line 1", ExpectedOutputFragment: "1", UserOutputFragment: "2"}})
	g.FinishNoError()

	runs, err := store.TestRunsBySubmission(ctx, "sub-1")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, api.WrongAnswer, runs[0].ResultType)
	assert.Equal(t, "Wrong answer on line 1", runs[0].CheckerComment)
	assert.Equal(t, "2", runs[0].UserOutputFragment)
}
