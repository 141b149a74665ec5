package tester_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal"
	"github.com/programme-lv/executor/internal/sqlexec/sqliteexec"
	"github.com/programme-lv/executor/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type events struct {
	internal.NopGatherer
	log []string
}

func (e *events) StartJob(string, *internal.Submission) { e.log = append(e.log, "start") }
func (e *events) ReachTest(t internal.TestContext)      { e.log = append(e.log, fmt.Sprintf("reach %d", t.ID)) }
func (e *events) FinishTest(r internal.TestResult) {
	e.log = append(e.log, fmt.Sprintf("finish %d %s", r.ID, r.ResultType))
}
func (e *events) CompileError(string)  { e.log = append(e.log, "compile error") }
func (e *events) InternalError(string) { e.log = append(e.log, "internal error") }
func (e *events) FinishNoError()       { e.log = append(e.log, "done") }

type memFiles map[string]string

func (m memFiles) Schedule(key string, url string) error {
	if _, ok := m[key]; !ok {
		return fmt.Errorf("no file at %s", url)
	}
	return nil
}

func (m memFiles) AwaitContext(_ context.Context, key string) ([]byte, error) {
	return []byte(m[key]), nil
}

type catalog map[string][2]string

func (c catalog) ResolveChecker(_ context.Context, name string) (string, string, bool, error) {
	v, ok := c[name]
	return v[0], v[1], ok, nil
}

func newTester(t *testing.T, opts ...tester.Option) *tester.Tester {
	t.Helper()
	prov, err := sqliteexec.New(t.TempDir())
	require.NoError(t, err)
	tst := tester.NewTester(opts...)
	tst.RegisterSQL(nil, prov)
	return tst
}

func sqliteSubmission(tests ...internal.TestContext) *internal.Submission {
	return &internal.Submission{
		ID:                    "s1",
		ExecutionType:         api.TestsExecution,
		ExecutionStrategyType: api.SqlitePrepareDatabaseAndRunQueries,
		Code:                  "SELECT v FROM t ORDER BY v;",
		Input:                 internal.TestsInput{Tests: tests},
	}
}

func TestExecuteSubmission(t *testing.T) {
	tst := newTester(t)
	require.Equal(t, []api.ExecutionStrategyType{
		api.SqlitePrepareDatabaseAndRunQueries,
		api.SqliteRunQueriesAndCheckDatabase,
		api.SqliteRunSkeletonRunQueriesAndCheckDatabase,
	}, tst.Strategies())

	sub := sqliteSubmission(
		internal.TestContext{ID: 2, OrderBy: 2, Input: "CREATE TABLE t(v); INSERT INTO t VALUES (2),(1);", Output: "1\n3"},
		internal.TestContext{ID: 1, OrderBy: 1, Input: "CREATE TABLE t(v); INSERT INTO t VALUES (1);", Output: "1"},
	)

	gath := &events{}
	res, err := tst.ExecuteSubmission(context.Background(), sub, gath)
	require.NoError(t, err)
	require.True(t, res.IsCompiledSuccessfully, res.CompilerComment)

	assert.Equal(t, internal.DefaultTimeLimitMillis, sub.TimeLimit)
	assert.Equal(t, internal.DefaultMemoryLimitBytes, sub.MemoryLimit)
	assert.Equal(t, []string{
		"start",
		"reach 1", "finish 1 CorrectAnswer",
		"reach 2", "finish 2 WrongAnswer",
		"done",
	}, gath.log)
}

func TestExecuteSubmissionOrdersExtremeOrderBy(t *testing.T) {
	tst := newTester(t)
	setup := "CREATE TABLE t(v); INSERT INTO t VALUES (1);"
	sub := sqliteSubmission(
		internal.TestContext{ID: 3, OrderBy: math.MaxInt, Input: setup, Output: "1"},
		internal.TestContext{ID: 1, OrderBy: math.MinInt, Input: setup, Output: "1"},
		internal.TestContext{ID: 2, OrderBy: 0, Input: setup, Output: "1"},
	)

	gath := &events{}
	_, err := tst.ExecuteSubmission(context.Background(), sub, gath)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"start",
		"reach 1", "finish 1 CorrectAnswer",
		"reach 2", "finish 2 CorrectAnswer",
		"reach 3", "finish 3 CorrectAnswer",
		"done",
	}, gath.log)
}

func TestExecuteSubmissionReportsCompileError(t *testing.T) {
	tst := newTester(t)
	sub := sqliteSubmission(internal.TestContext{ID: 1, Input: "CREATE TABLE u(v);", Output: ""})

	gath := &events{}
	res, err := tst.ExecuteSubmission(context.Background(), sub, gath)
	require.NoError(t, err)
	assert.False(t, res.IsCompiledSuccessfully)
	assert.Contains(t, res.CompilerComment, "no such table")
	assert.Equal(t, []string{"start", "reach 1", "compile error"}, gath.log)
}

func TestValidation(t *testing.T) {
	tst := newTester(t)

	cases := []struct {
		name   string
		modify func(*internal.Submission)
		err    error
	}{
		{"not applicable", func(s *internal.Submission) { s.ExecutionType = api.NotApplicable }, tester.ErrNotApplicable},
		{"unregistered strategy", func(s *internal.Submission) { s.ExecutionStrategyType = api.MySqlRunQueriesAndCheckDatabase }, tester.ErrUnknownStrategy},
		{"no tests", func(s *internal.Submission) { s.Input.Tests = nil }, tester.ErrNoTests},
		{"duplicate ids", func(s *internal.Submission) {
			s.Input.Tests = append(s.Input.Tests, internal.TestContext{ID: 1})
		}, tester.ErrDuplicateTestID},
		{"unknown checker", func(s *internal.Submission) { s.Input.CheckerTypeName = "DllChecker" }, tester.ErrUnknownChecker},
		{"file refs without store", func(s *internal.Submission) {
			s.Input.Tests[0].InputRef = &internal.FileRef{URL: "http://x", Sha256: "ab"}
		}, tester.ErrMissingTestFileStore},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := sqliteSubmission(internal.TestContext{ID: 1, Input: "SELECT 1;", Output: "1"})
			tc.modify(sub)

			gath := &events{}
			res, err := tst.ExecuteSubmission(context.Background(), sub, gath)
			require.ErrorIs(t, err, tc.err)
			assert.Nil(t, res)
			assert.Equal(t, []string{"start", "internal error"}, gath.log)
		})
	}
}

func TestResolvesTestFilesAndCatalogCheckers(t *testing.T) {
	files := memFiles{
		"in":  "CREATE TABLE t(v); INSERT INTO t VALUES (0.1), (0.2);",
		"out": "0.1\n0.2000001",
	}
	tst := newTester(t,
		tester.WithFileStore(files),
		tester.WithCheckerCatalog(catalog{"Numbers": {"PrecisionChecker", "3"}}),
	)

	sub := sqliteSubmission(internal.TestContext{
		ID:        1,
		InputRef:  &internal.FileRef{URL: "http://files/in", Sha256: "in"},
		OutputRef: &internal.FileRef{URL: "http://files/out", Sha256: "out"},
	})
	sub.Input.CheckerTypeName = "Numbers"

	res, err := tst.ExecuteSubmission(context.Background(), sub, nil)
	require.NoError(t, err)
	require.True(t, res.IsCompiledSuccessfully, res.CompilerComment)
	require.Len(t, res.Results, 1)
	assert.Equal(t, api.CorrectAnswer, res.Results[0].ResultType)
	assert.Equal(t, "PrecisionChecker", sub.Input.CheckerTypeName)
	assert.Equal(t, "3", sub.Input.CheckerParameter)
}
