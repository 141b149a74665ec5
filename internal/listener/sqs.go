package listener

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/programme-lv/executor/internal"
	"github.com/programme-lv/executor/internal/gatherer/sqsgath"
)

// SQSAPI is the part of *sqs.Client the listener needs.
type SQSAPI interface {
	sqsgath.SendMessageAPI
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type SQSListener struct {
	client   SQSAPI
	queueUrl string
	runner   Runner
	logger   *slog.Logger

	// Extra builds additional gatherers per submission, may be nil.
	Extra func(sub *internal.Submission) internal.ResultGatherer
	// WaitTime is the long-poll duration of a receive call.
	WaitTime time.Duration
}

func NewSQS(client SQSAPI, queueUrl string, runner Runner, logger *slog.Logger) *SQSListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQSListener{
		client:   client,
		queueUrl: queueUrl,
		runner:   runner,
		logger:   logger.With("component", "sqs-listener", "queue", queueUrl),
		WaitTime: 20 * time.Second,
	}
}

// Run receives and evaluates submissions one at a time until ctx is done.
// A message is deleted once it has been evaluated or found malformed.
func (l *SQSListener) Run(ctx context.Context) error {
	for {
		out, err := l.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(l.queueUrl),
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     int32(l.WaitTime / time.Second),
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			l.logger.Warn("failed to receive messages", "error", err)
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		for _, msg := range out.Messages {
			l.handle(ctx, aws.ToString(msg.Body))

			_, err := l.client.DeleteMessage(context.WithoutCancel(ctx), &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(l.queueUrl),
				ReceiptHandle: msg.ReceiptHandle,
			})
			if err != nil {
				l.logger.Error("failed to delete message", "error", err)
			}
		}
	}
}

func (l *SQSListener) handle(ctx context.Context, body string) {
	qReq, sub, err := decode([]byte(body))
	if qReq == nil {
		l.logger.Error("dropping malformed message", "error", err)
		return
	}

	var gath internal.MultiGatherer
	if qReq.ResSqsUrl != "" {
		gath = append(gath, sqsgath.New(l.client, qReq.EvalUuid, qReq.ResSqsUrl, l.logger))
	}
	if err != nil {
		l.logger.Warn("invalid submission", "eval_uuid", qReq.EvalUuid, "error", err)
		gath.InternalError(err.Error())
		return
	}
	if l.Extra != nil {
		gath = append(gath, l.Extra(sub))
	}

	if _, err := l.runner.ExecuteSubmission(ctx, sub, gath); err != nil && !errors.Is(err, context.Canceled) {
		l.logger.Warn("submission was not executed", "eval_uuid", qReq.EvalUuid, "error", err)
	}
}
