package listener_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal/listener"
	"github.com/programme-lv/executor/internal/sqlexec/sqliteexec"
	"github.com/programme-lv/executor/internal/tester"
	"github.com/stretchr/testify/require"
)

func TestNATSListener(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL is not set")
	}
	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	prov, err := sqliteexec.New(t.TempDir())
	require.NoError(t, err)
	tst := tester.NewTester()
	tst.RegisterSQL(nil, prov)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	subject := "executor.test." + nats.NewInbox()
	l := listener.NewNATS(nc, subject, "workers", tst, nil)
	go l.Run(ctx)

	inbox := nats.NewInbox()
	replies, err := nc.SubscribeSync(inbox)
	require.NoError(t, err)

	body, err := json.Marshal(api.QueueRequest{
		EvalUuid: "nats-1",
		Request: api.ExecuteSubmissionRequest{
			ExecutionType:     "tests-execution",
			ExecutionStrategy: "sqlite-prepare-database-and-run-queries",
			Code:              "SELECT 1;",
			ExecutionDetails:  api.ExecutionDetails{Tests: []api.TestContext{{Id: 1, Input: "CREATE TABLE x(v);", Output: "1"}}},
		},
	})
	require.NoError(t, err)

	// give the queue subscription time to register
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, nc.PublishRequest(subject, inbox, body))

	var last api.Header
	for last.MsgType != api.FinishJobMsg {
		msg, err := replies.NextMsg(10 * time.Second)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(msg.Data, &last))
		require.Equal(t, "nats-1", last.EvalUuid)
	}
}
