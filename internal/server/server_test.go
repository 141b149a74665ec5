package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal"
	"github.com/programme-lv/executor/internal/remote"
	"github.com/programme-lv/executor/internal/server"
	"github.com/programme-lv/executor/internal/sqlexec/sqliteexec"
	"github.com/programme-lv/executor/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, opts ...server.Option) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	prov, err := sqliteexec.New(t.TempDir())
	require.NoError(t, err)
	tst := tester.NewTester()
	tst.RegisterSQL(nil, prov)

	srv := httptest.NewServer(server.New(tst, opts...).Router())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, body any) (int, api.RemoteSubmissionResult) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()

	var res api.RemoteSubmissionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return resp.StatusCode, res
}

func TestRoundTripWithRemoteClient(t *testing.T) {
	var persisted []internal.TestResult
	record := &recorder{finish: func(r internal.TestResult) { persisted = append(persisted, r) }}
	srv := newServer(t, server.WithConcurrency(1), server.WithGatherer(func(*internal.Submission) internal.ResultGatherer {
		return record
	}))

	client := remote.NewClient(srv.URL, remote.WithGzip())
	sub := &internal.Submission{
		ExecutionType:         api.TestsExecution,
		ExecutionStrategyType: api.SqliteRunSkeletonRunQueriesAndCheckDatabase,
		Code:                  "INSERT INTO t VALUES (3);",
		TimeLimit:             1000,
		MaxPoints:             10,
		Input: internal.TestsInput{
			CheckerTypeName:      "SortChecker",
			TaskSkeletonAsString: "CREATE TABLE t(v INTEGER); INSERT INTO t VALUES (2), (1);",
			Tests: []internal.TestContext{
				{ID: 1, Input: "SELECT v FROM t;", Output: "3\n2\n1"},
				{ID: 2, Input: "SELECT COUNT(*) FROM t;", Output: "2"},
			},
		},
	}

	res, err := client.RunSubmission(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, res.IsCompiledSuccessfully)
	require.Len(t, res.Results, 2)
	assert.Equal(t, api.CorrectAnswer, res.Results[0].ResultType)
	assert.Equal(t, api.WrongAnswer, res.Results[1].ResultType)
	assert.Equal(t, "SELECT COUNT(*) FROM t;", res.Results[1].Input)
	assert.NotEmpty(t, res.Results[1].CheckerDetails.UserOutputFragment)

	assert.Len(t, persisted, 2)
}

func TestBadRequests(t *testing.T) {
	srv := newServer(t)

	valid := api.ExecuteSubmissionRequest{
		ExecutionType:     "tests-execution",
		ExecutionStrategy: "sqlite-prepare-database-and-run-queries",
		Code:              "SELECT 1;",
		ExecutionDetails: api.ExecutionDetails{
			Tests: []api.TestContext{{Id: 1, Input: "SELECT 1;", Output: "1"}},
		},
	}

	status, res := post(t, srv.URL+"/executeSubmission?keepDetails=maybe", valid)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, res.Exception)

	unknown := valid
	unknown.ExecutionStrategy = "cobol"
	status, res = post(t, srv.URL+"/executeSubmission", unknown)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, res.Exception)
	assert.Contains(t, res.Exception.Message, "cobol")

	unregistered := valid
	unregistered.ExecutionStrategy = "mysql-prepare-database-and-run-queries"
	status, res = post(t, srv.URL+"/executeSubmission", unregistered)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, res.Exception)

	resp, err := http.Post(srv.URL+"/executeSubmission", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status, res = post(t, srv.URL+"/executeSubmission?keepDetails=true", valid)
	assert.Equal(t, http.StatusOK, status)
	require.Nil(t, res.Exception)
	require.NotNil(t, res.ExecutionResult)
	assert.Equal(t, "CorrectAnswer", res.ExecutionResult.TaskResult.TestResults[0].ResultType)
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status     string   `json:"status"`
		Strategies []string `json:"strategies"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Contains(t, body.Strategies, "sqlite-run-queries-and-check-database")
}

type recorder struct {
	internal.NopGatherer
	finish func(internal.TestResult)
}

func (r *recorder) FinishTest(res internal.TestResult) { r.finish(res) }
