// Package streamgath turns gatherer events into api stream messages and
// hands them to a transport.
package streamgath

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal"
)

// Sender delivers one encoded message.
type Sender interface {
	Send(ctx context.Context, body []byte) error
}

type Gatherer struct {
	sender   Sender
	evalUuid string
	logger   *slog.Logger
}

func New(sender Sender, evalUuid string, logger *slog.Logger) *Gatherer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gatherer{
		sender:   sender,
		evalUuid: evalUuid,
		logger:   logger.With("eval_uuid", evalUuid),
	}
}

func (g *Gatherer) StartJob(systemInfo string, sub *internal.Submission) {
	g.send(api.NewStartJob(g.evalUuid, systemInfo, sub.ExecutionStrategyType.String()))
}

func (g *Gatherer) ReachTest(test internal.TestContext) {
	var input *string
	if trimmed := TrimStrToRect(test.Input, api.MaxFragmentHeight, api.MaxFragmentWidth); trimmed != "" {
		input = &trimmed
	}
	g.send(api.NewReachTest(g.evalUuid, test.ID, input))
}

func (g *Gatherer) FinishTest(res internal.TestResult) {
	resp := res.Response(true)
	details := &resp.CheckerDetails
	details.ExpectedOutputFragment = TrimStrToRect(details.ExpectedOutputFragment, api.MaxFragmentHeight, api.MaxFragmentWidth)
	details.UserOutputFragment = TrimStrToRect(details.UserOutputFragment, api.MaxFragmentHeight, api.MaxFragmentWidth)
	g.send(api.NewFinishTest(g.evalUuid, resp))
}

func (g *Gatherer) CompileError(msg string) {
	g.send(api.NewFinishJob(g.evalUuid, &msg, true, false))
}

func (g *Gatherer) InternalError(msg string) {
	g.send(api.NewFinishJob(g.evalUuid, &msg, false, true))
}

func (g *Gatherer) FinishNoError() {
	g.send(api.NewFinishJob(g.evalUuid, nil, false, false))
}

func (g *Gatherer) send(msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		g.logger.Error("failed to marshal message", "error", err)
		return
	}
	if err := g.sender.Send(context.Background(), b); err != nil {
		g.logger.Error("failed to send message", "error", err)
	}
}
