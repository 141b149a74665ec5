// Package natsgath streams evaluation events to a NATS inbox.
package natsgath

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/programme-lv/executor/internal/gatherer/streamgath"
)

type publisher struct {
	nc    *nats.Conn
	inbox string
}

func (p publisher) Send(_ context.Context, body []byte) error {
	return p.nc.Publish(p.inbox, body)
}

// New creates a gatherer that publishes every event to the given inbox subject.
func New(nc *nats.Conn, evalUuid string, inbox string, logger *slog.Logger) *streamgath.Gatherer {
	return streamgath.New(publisher{nc: nc, inbox: inbox}, evalUuid, logger)
}
