// Package dbgath persists every finished test as a TestRun record.
package dbgath

import (
	"context"
	"log/slog"

	"github.com/programme-lv/executor/internal"
	"github.com/programme-lv/executor/internal/database"
)

type TestRunStore interface {
	InsertTestRun(ctx context.Context, r *database.TestRun) error
}

type Gatherer struct {
	internal.NopGatherer

	store        TestRunStore
	submissionID string
	logger       *slog.Logger
}

func New(store TestRunStore, submissionID string, logger *slog.Logger) *Gatherer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gatherer{store: store, submissionID: submissionID, logger: logger}
}

func (g *Gatherer) FinishTest(res internal.TestResult) {
	run := &database.TestRun{
		SubmissionID:           g.submissionID,
		TestID:                 res.ID,
		TimeUsed:               res.TimeUsed,
		MemoryUsed:             res.MemoryUsed,
		ResultType:             res.ResultType,
		ExecutionComment:       res.ExecutionComment,
		CheckerComment:         res.CheckerDetails.Comment,
		ExpectedOutputFragment: res.CheckerDetails.ExpectedOutputFragment,
		UserOutputFragment:     res.CheckerDetails.UserOutputFragment,
	}
	if err := g.store.InsertTestRun(context.Background(), run); err != nil {
		g.logger.Error("failed to store test run", "submission", g.submissionID, "test", res.ID, "error", err)
	}
}
