package listener

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/programme-lv/executor/internal"
	"github.com/programme-lv/executor/internal/gatherer/natsgath"
)

type NATSListener struct {
	nc      *nats.Conn
	subject string
	queue   string
	runner  Runner
	logger  *slog.Logger

	Extra func(sub *internal.Submission) internal.ResultGatherer
}

func NewNATS(nc *nats.Conn, subject string, queue string, runner Runner, logger *slog.Logger) *NATSListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSListener{
		nc:      nc,
		subject: subject,
		queue:   queue,
		runner:  runner,
		logger:  logger.With("component", "nats-listener", "subject", subject),
	}
}

// Run queue-subscribes to the subject so that every submission reaches one
// worker of the group, and streams events to the message's reply inbox.
func (l *NATSListener) Run(ctx context.Context) error {
	sub, err := l.nc.QueueSubscribe(l.subject, l.queue, func(msg *nats.Msg) {
		l.handle(ctx, msg)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		l.logger.Warn("failed to drain subscription", "error", err)
	}
	return ctx.Err()
}

func (l *NATSListener) handle(ctx context.Context, msg *nats.Msg) {
	qReq, sub, err := decode(msg.Data)
	if qReq == nil {
		l.logger.Error("dropping malformed message", "error", err)
		return
	}

	var gath internal.MultiGatherer
	if msg.Reply != "" {
		gath = append(gath, natsgath.New(l.nc, qReq.EvalUuid, msg.Reply, l.logger))
	} else {
		l.logger.Warn("message has no reply inbox", "eval_uuid", qReq.EvalUuid)
	}
	if err != nil {
		gath.InternalError(err.Error())
		return
	}
	if l.Extra != nil {
		gath = append(gath, l.Extra(sub))
	}

	if _, err := l.runner.ExecuteSubmission(ctx, sub, gath); err != nil {
		l.logger.Warn("submission was not executed", "eval_uuid", qReq.EvalUuid, "error", err)
	}
}
