package respbuilder

import (
	"html"
	"sync"

	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal"
)

// Builder gathers execution events and builds a complete
// api.RemoteSubmissionResult.
type Builder struct {
	mu sync.Mutex

	maxPoints int
	results   []internal.TestResult

	compiled        bool
	compilerComment string
	internalErr     *string
}

func New() *Builder {
	return &Builder{compiled: true}
}

// StartJob implements ResultGatherer.
func (b *Builder) StartJob(_ string, sub *internal.Submission) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxPoints = sub.MaxPoints
}

// ReachTest implements ResultGatherer.
func (b *Builder) ReachTest(internal.TestContext) {}

// FinishTest implements ResultGatherer.
func (b *Builder) FinishTest(res internal.TestResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, res)
}

// CompileError implements ResultGatherer.
func (b *Builder) CompileError(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.compiled = false
	b.compilerComment = msg
}

// InternalError implements ResultGatherer.
func (b *Builder) InternalError(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.internalErr = &msg
}

// FinishNoError implements ResultGatherer.
func (b *Builder) FinishNoError() {}

// Response builds the wire result. keepDetails keeps output fragments,
// escapeTests HTML-escapes the checker details.
func (b *Builder) Response(keepDetails bool, escapeTests bool) api.RemoteSubmissionResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.internalErr != nil {
		return api.RemoteSubmissionResult{Exception: &api.ExceptionModel{Message: *b.internalErr}}
	}

	tests := make([]api.TestResultResponse, 0, len(b.results))
	for _, r := range b.results {
		resp := r.Response(keepDetails)
		if escapeTests {
			d := &resp.CheckerDetails
			d.Comment = html.EscapeString(d.Comment)
			d.ExpectedOutputFragment = html.EscapeString(d.ExpectedOutputFragment)
			d.UserOutputFragment = html.EscapeString(d.UserOutputFragment)
		}
		tests = append(tests, resp)
	}

	return api.RemoteSubmissionResult{
		ExecutionResult: &api.ExecutionResultResponse{
			IsCompiledSuccessfully: b.compiled,
			CompilerComment:        b.compilerComment,
			TaskResult: api.TaskResultResponse{
				Points:      Points(b.maxPoints, b.results),
				TestResults: tests,
			},
		},
	}
}

// Points scales maxPoints by the share of correct non-trial tests.
func Points(maxPoints int, results []internal.TestResult) int {
	total, correct := 0, 0
	for _, r := range results {
		if r.IsTrialTest {
			continue
		}
		total++
		if r.ResultType == api.CorrectAnswer {
			correct++
		}
	}
	if total == 0 {
		return 0
	}
	return maxPoints * correct / total
}
