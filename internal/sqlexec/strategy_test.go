package sqlexec_test

import (
	"context"
	"os"
	"testing"

	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal"
	"github.com/programme-lv/executor/internal/sqlexec"
	"github.com/programme-lv/executor/internal/sqlexec/sqliteexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingGatherer struct {
	internal.NopGatherer
	reached  []int
	finished []internal.TestResult
}

func (g *recordingGatherer) ReachTest(test internal.TestContext) {
	g.reached = append(g.reached, test.ID)
}

func (g *recordingGatherer) FinishTest(res internal.TestResult) {
	g.finished = append(g.finished, res)
}

func newStrategy(t *testing.T, flow sqlexec.Flow) (*sqlexec.Strategy, string) {
	t.Helper()
	dir := t.TempDir()
	prov, err := sqliteexec.New(dir)
	require.NoError(t, err)
	return sqlexec.NewStrategy(prov, flow, nil), dir
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch databases should be dropped")
}

const peopleSetup = `
CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER);
INSERT INTO people (name, age) VALUES ('ann', 31), ('bob', 25), ('cid', NULL);
`

func TestPrepareDatabaseAndRunQueries(t *testing.T) {
	s, dir := newStrategy(t, sqlexec.PrepareDatabaseAndRunQueries)

	sub := &internal.Submission{
		ID:        "subm-1",
		Code:      "SELECT name, age FROM people ORDER BY name;",
		TimeLimit: 1000,
		Input: internal.TestsInput{
			CheckerTypeName: "trim",
			Tests: []internal.TestContext{
				{ID: 1, Input: peopleSetup, Output: "ann\n31\nbob\n25\ncid\n"},
				{ID: 2, Input: peopleSetup, Output: "ann\n31\nbob\n26\ncid\n"},
			},
		},
	}

	gath := &recordingGatherer{}
	res := s.Execute(context.Background(), sub, gath)

	require.True(t, res.IsCompiledSuccessfully, res.CompilerComment)
	require.Len(t, res.Results, 2)
	assert.Equal(t, api.CorrectAnswer, res.Results[0].ResultType)
	assert.Equal(t, api.WrongAnswer, res.Results[1].ResultType)
	assert.Equal(t, "Wrong answer on line 4", res.Results[1].CheckerDetails.Comment)

	assert.Equal(t, []int{1, 2}, gath.reached)
	assert.Len(t, gath.finished, 2)
	requireEmptyDir(t, dir)
}

func TestRunQueriesAndCheckDatabase(t *testing.T) {
	s, dir := newStrategy(t, sqlexec.RunQueriesAndCheckDatabase)

	sub := &internal.Submission{
		Code: `CREATE TABLE t (v INTEGER); INSERT INTO t VALUES (3), (1), (2);`,
		Input: internal.TestsInput{
			CheckerTypeName: "sort",
			Tests: []internal.TestContext{
				{ID: 7, Input: "SELECT v FROM t;", Output: "1\n2\n3"},
				{ID: 8, Input: "SELECT COUNT(*) FROM t;", Output: "3"},
			},
		},
		TimeLimit: 1000,
	}

	res := s.Execute(context.Background(), sub, nil)

	require.True(t, res.IsCompiledSuccessfully, res.CompilerComment)
	require.Len(t, res.Results, 2)
	for _, r := range res.Results {
		assert.Equal(t, api.CorrectAnswer, r.ResultType, "test %d", r.ID)
	}
	requireEmptyDir(t, dir)
}

func TestRunSkeletonRunQueriesAndCheckDatabase(t *testing.T) {
	s, _ := newStrategy(t, sqlexec.RunSkeletonRunQueriesAndCheckDatabase)

	sub := &internal.Submission{
		Code:      `UPDATE people SET age = age + 1 WHERE age IS NOT NULL;`,
		TimeLimit: 1000,
		Input: internal.TestsInput{
			TaskSkeletonAsString: peopleSetup,
			Tests: []internal.TestContext{
				{ID: 1, Input: "SELECT SUM(age) FROM people;", Output: "58"},
			},
		},
	}

	res := s.Execute(context.Background(), sub, nil)
	require.True(t, res.IsCompiledSuccessfully, res.CompilerComment)
	require.Len(t, res.Results, 1)
	assert.Equal(t, api.CorrectAnswer, res.Results[0].ResultType)
}

func TestTimeLimit(t *testing.T) {
	s, dir := newStrategy(t, sqlexec.PrepareDatabaseAndRunQueries)

	sub := &internal.Submission{
		Code:      `WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM c) SELECT COUNT(*) FROM c;`,
		TimeLimit: 50,
		Input: internal.TestsInput{
			Tests: []internal.TestContext{{ID: 3, Input: "SELECT 1;", Output: "1"}},
		},
	}

	res := s.Execute(context.Background(), sub, nil)
	require.True(t, res.IsCompiledSuccessfully, res.CompilerComment)
	require.Len(t, res.Results, 1)
	assert.Equal(t, api.TimeLimit, res.Results[0].ResultType)
	assert.Equal(t, 50, res.Results[0].TimeUsed)
	requireEmptyDir(t, dir)
}

func TestErrorAbortsAndDropsDatabase(t *testing.T) {
	s, dir := newStrategy(t, sqlexec.RunQueriesAndCheckDatabase)

	sub := &internal.Submission{
		Code:      `CREATE TABLE t (v INTEGER); INSERT INTO t VALUES (1);`,
		TimeLimit: 1000,
		Input: internal.TestsInput{
			Tests: []internal.TestContext{
				{ID: 1, Input: "SELECT v FROM t;", Output: "1"},
				{ID: 2, Input: "SELECT missing FROM t;", Output: "1"},
				{ID: 3, Input: "SELECT v FROM t;", Output: "1"},
			},
		},
	}

	res := s.Execute(context.Background(), sub, nil)
	assert.False(t, res.IsCompiledSuccessfully)
	assert.Contains(t, res.CompilerComment, "missing")
	require.Len(t, res.Results, 1)
	assert.Equal(t, api.CorrectAnswer, res.Results[0].ResultType)
	requireEmptyDir(t, dir)
}

func TestUnknownCheckerIsReported(t *testing.T) {
	s, _ := newStrategy(t, sqlexec.PrepareDatabaseAndRunQueries)

	sub := &internal.Submission{
		Code:      "SELECT 1;",
		TimeLimit: 1000,
		Input: internal.TestsInput{
			CheckerTypeName: "nope",
			Tests:           []internal.TestContext{{ID: 1, Input: "SELECT 1;", Output: "1"}},
		},
	}

	res := s.Execute(context.Background(), sub, nil)
	assert.False(t, res.IsCompiledSuccessfully)
	assert.Contains(t, res.CompilerComment, `unknown checker type "nope"`)
}

func TestFieldFormatting(t *testing.T) {
	s, _ := newStrategy(t, sqlexec.PrepareDatabaseAndRunQueries)

	sub := &internal.Submission{
		Code:      "SELECT b, f, n, s FROM v;",
		TimeLimit: 1000,
		Input: internal.TestsInput{
			CheckerTypeName: "exact",
			Tests: []internal.TestContext{{
				ID: 1,
				Input: `CREATE TABLE v (b BLOB, f REAL, n INTEGER, s TEXT);
INSERT INTO v VALUES (x'00AFff', 1.5, NULL, 'text');`,
				Output: "0x00AFFF\n1.5\n\ntext",
			}},
		},
	}

	res := s.Execute(context.Background(), sub, nil)
	require.True(t, res.IsCompiledSuccessfully, res.CompilerComment)
	require.Len(t, res.Results, 1)
	assert.Equal(t, api.CorrectAnswer, res.Results[0].ResultType, res.Results[0].CheckerDetails)
}

func TestEveryStatementResultIsRead(t *testing.T) {
	s, _ := newStrategy(t, sqlexec.PrepareDatabaseAndRunQueries)

	sub := &internal.Submission{
		Code:      "SELECT 1; SELECT 2;",
		TimeLimit: 1000,
		Input: internal.TestsInput{
			CheckerTypeName: "exact",
			Tests: []internal.TestContext{
				{ID: 1, Input: "CREATE TABLE t(v);", Output: "1\n2"},
			},
		},
	}

	res := s.Execute(context.Background(), sub, nil)
	require.True(t, res.IsCompiledSuccessfully, res.CompilerComment)
	require.Len(t, res.Results, 1)
	assert.Equal(t, api.CorrectAnswer, res.Results[0].ResultType, res.Results[0].CheckerDetails)
}

func TestCheckQueryMixesStatements(t *testing.T) {
	s, _ := newStrategy(t, sqlexec.RunQueriesAndCheckDatabase)

	sub := &internal.Submission{
		Code:      "CREATE TABLE t(v); INSERT INTO t VALUES (3), (1);",
		TimeLimit: 1000,
		Input: internal.TestsInput{
			CheckerTypeName: "exact",
			Tests: []internal.TestContext{{
				ID:     1,
				Input:  "SELECT COUNT(*) FROM t; INSERT INTO t VALUES (2); SELECT v FROM t ORDER BY v;",
				Output: "2\n1\n2\n3",
			}},
		},
	}

	res := s.Execute(context.Background(), sub, nil)
	require.True(t, res.IsCompiledSuccessfully, res.CompilerComment)
	require.Len(t, res.Results, 1)
	assert.Equal(t, api.CorrectAnswer, res.Results[0].ResultType, res.Results[0].CheckerDetails)
}

func TestToHexString(t *testing.T) {
	assert.Equal(t, "0x", sqlexec.ToHexString(nil))
	assert.Equal(t, "0x00FF10", sqlexec.ToHexString([]byte{0x00, 0xff, 0x10}))
}
