// Package termgath prints evaluation progress to a terminal.
package termgath

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal"
)

type TerminalGatherer struct {
	StartedAt time.Time
	out       io.Writer
}

func New() *TerminalGatherer { return NewWithWriter(color.Output) }

func NewWithWriter(w io.Writer) *TerminalGatherer {
	return &TerminalGatherer{StartedAt: time.Now(), out: w}
}

var (
	header = color.New(color.Bold)
	ok     = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
	warn   = color.New(color.FgYellow)
)

func (t *TerminalGatherer) StartJob(systemInfo string, sub *internal.Submission) {
	t.StartedAt = time.Now()
	header.Fprintf(t.out, "== Evaluation started: %s ==\n", sub.ExecutionStrategyType)
	if systemInfo != "" {
		fmt.Fprintln(t.out, "System info:")
		fmt.Fprintln(t.out, systemInfo)
	}
}

func (t *TerminalGatherer) ReachTest(test internal.TestContext) {
	fmt.Fprintf(t.out, "-> Test %d reached\n", test.ID)
}

func (t *TerminalGatherer) FinishTest(res internal.TestResult) {
	c := bad
	switch res.ResultType {
	case api.CorrectAnswer:
		c = ok
	case api.TimeLimit, api.MemoryLimit:
		c = warn
	}
	fmt.Fprintf(t.out, "<- Test %d finished: ", res.ID)
	c.Fprintln(t.out, res.ResultType)
	if res.CheckerDetails.Comment != "" {
		fmt.Fprintf(t.out, "  checker: %s\n", res.CheckerDetails.Comment)
	}
	if res.CheckerDetails.ExpectedOutputFragment != "" || res.CheckerDetails.UserOutputFragment != "" {
		fmt.Fprintf(t.out, "  expected: %q\n  got:      %q\n",
			res.CheckerDetails.ExpectedOutputFragment, res.CheckerDetails.UserOutputFragment)
	}
}

func (t *TerminalGatherer) CompileError(msg string) {
	bad.Fprintf(t.out, "== Compilation error: %s ==\n", msg)
}

func (t *TerminalGatherer) InternalError(msg string) {
	bad.Fprintf(t.out, "== Internal error: %s ==\n", msg)
}

func (t *TerminalGatherer) FinishNoError() {
	dur := time.Since(t.StartedAt).Round(time.Millisecond)
	header.Fprintf(t.out, "== Evaluation finished in %s ==\n", dur)
}
