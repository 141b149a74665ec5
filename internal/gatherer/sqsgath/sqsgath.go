// Package sqsgath streams evaluation events to an SQS response queue.
package sqsgath

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/programme-lv/executor/internal/gatherer/streamgath"
)

// SendMessageAPI is the part of *sqs.Client the gatherer needs.
type SendMessageAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type queue struct {
	client   SendMessageAPI
	queueUrl string
	groupID  string
}

func (q queue) Send(ctx context.Context, body []byte) error {
	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueUrl),
		MessageBody: aws.String(string(body)),
	}
	if q.groupID != "" {
		in.MessageGroupId = aws.String(q.groupID)
	}
	_, err := q.client.SendMessage(ctx, in)
	return err
}

// New creates a gatherer that sends every event to responseSqsUrl. FIFO
// queues get the evaluation uuid as message group so events stay ordered.
func New(client SendMessageAPI, evalUuid string, responseSqsUrl string, logger *slog.Logger) *streamgath.Gatherer {
	q := queue{client: client, queueUrl: responseSqsUrl}
	if strings.HasSuffix(responseSqsUrl, ".fifo") {
		q.groupID = evalUuid
	}
	return streamgath.New(q, evalUuid, logger)
}
