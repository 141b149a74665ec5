// Package listener takes submissions from message queues and streams the
// evaluation back to the sender.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal"
)

// Runner is implemented by *tester.Tester.
type Runner interface {
	ExecuteSubmission(ctx context.Context, sub *internal.Submission, gath internal.ResultGatherer) (*internal.ExecutionResult, error)
}

// decode parses a queue message. Messages without an evaluation uuid get a
// fresh one.
func decode(body []byte) (*api.QueueRequest, *internal.Submission, error) {
	var qReq api.QueueRequest
	if err := json.Unmarshal(body, &qReq); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal queue message: %w", err)
	}
	if strings.TrimSpace(qReq.EvalUuid) == "" {
		qReq.EvalUuid = uuid.NewString()
	}
	sub, err := internal.SubmissionFromRequest(qReq.EvalUuid, qReq.Request)
	if err != nil {
		return &qReq, nil, err
	}
	return &qReq, sub, nil
}
