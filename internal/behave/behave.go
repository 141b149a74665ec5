// Package behave reads behaviour scenarios from TOML files and checks
// execution results against them.
package behave

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal"
)

// SpecTest is a single test case in the behaviour file
type SpecTest struct {
	In    string `toml:"in"`
	Ans   string `toml:"ans"`
	Trial bool   `toml:"trial"`
}

// SpecRequest represents a request block inside a scenario entry
type SpecRequest struct {
	Strategy         string     `toml:"strategy"`
	Code             string     `toml:"code"`
	Skeleton         string     `toml:"skeleton"`
	Checker          string     `toml:"checker"`
	CheckerParameter string     `toml:"checker_parameter"`
	TimeLimitMs      int        `toml:"time_limit_ms"`
	MaxPoints        int        `toml:"max_points"`
	Tests            []SpecTest `toml:"tests"`
}

// Expected job outcomes.
const (
	StatusSuccess       = "success"
	StatusCompileError  = "compile_error"
	StatusInternalError = "internal_error"
)

// SpecTestVerdict represents an expected verdict for a test result
type SpecTestVerdict struct {
	Verdict string `toml:"verdict"`
}

// SpecExpect describes expected overall status and per-test verdicts
type SpecExpect struct {
	Status      string            `toml:"status"`
	TestResults []SpecTestVerdict `toml:"test_results"`
}

// specSuite maps to [[scenarios]] entries. The request is written as an
// array-of-tables, so it is modelled as a slice and the first element is used.
type specSuite struct {
	Description string        `toml:"description"`
	RequestAOT  []SpecRequest `toml:"request"`
	Expect      SpecExpect    `toml:"expect"`
}

type specRoot struct {
	// Default strategy for scenarios that do not name one.
	Strategy string      `toml:"strategy"`
	Suites   []specSuite `toml:"scenarios"`
}

// Case is a runnable scenario converted from TOML
type Case struct {
	Name    string
	Request api.ExecuteSubmissionRequest
	Expect  SpecExpect
}

// Parse reads a behaviour TOML file and converts it to runnable cases.
func Parse(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read behaviour file: %w", err)
	}
	var root specRoot
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cases := make([]Case, 0, len(root.Suites))
	for _, suite := range root.Suites {
		if len(suite.RequestAOT) == 0 {
			return nil, fmt.Errorf("scenario %q is missing request block", suite.Description)
		}
		reqSpec := suite.RequestAOT[0]

		strategy := reqSpec.Strategy
		if strategy == "" {
			strategy = root.Strategy
		}
		if _, err := api.ParseExecutionStrategyType(strategy); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", suite.Description, err)
		}

		switch suite.Expect.Status {
		case "":
			suite.Expect.Status = StatusSuccess
		case StatusSuccess, StatusCompileError, StatusInternalError:
		default:
			return nil, fmt.Errorf("scenario %q: unknown expected status %q", suite.Description, suite.Expect.Status)
		}

		tests := make([]api.TestContext, 0, len(reqSpec.Tests))
		for i, t := range reqSpec.Tests {
			tests = append(tests, api.TestContext{
				Id:          i + 1,
				Input:       t.In,
				Output:      t.Ans,
				IsTrialTest: t.Trial,
				OrderBy:     i,
			})
		}

		timeLimit := reqSpec.TimeLimitMs
		if timeLimit == 0 {
			timeLimit = 2000
		}

		cases = append(cases, Case{
			Name: suite.Description,
			Request: api.ExecuteSubmissionRequest{
				ExecutionType:     api.TestsExecution.String(),
				ExecutionStrategy: strategy,
				Code:              reqSpec.Code,
				TimeLimit:         timeLimit,
				ExecutionDetails: api.ExecutionDetails{
					MaxPoints:            reqSpec.MaxPoints,
					CheckerType:          reqSpec.Checker,
					CheckerParameter:     reqSpec.CheckerParameter,
					Tests:                tests,
					TaskSkeletonAsString: reqSpec.Skeleton,
				},
			},
			Expect: suite.Expect,
		})
	}

	return cases, nil
}

// Submission converts the case request for local execution.
func (c Case) Submission() (*internal.Submission, error) {
	return internal.SubmissionFromRequest(uuid.NewString(), c.Request)
}

// Check compares an execution outcome with the expectation. execErr is the
// error returned when the submission never reached a strategy.
func (c Case) Check(res *internal.ExecutionResult, execErr error) error {
	var errs []error

	status := StatusSuccess
	switch {
	case execErr != nil:
		status = StatusInternalError
	case !res.IsCompiledSuccessfully:
		status = StatusCompileError
	}
	if status != c.Expect.Status {
		detail := ""
		if execErr != nil {
			detail = execErr.Error()
		} else if res != nil {
			detail = res.CompilerComment
		}
		errs = append(errs, fmt.Errorf("expected status %s, got %s (%s)", c.Expect.Status, status, detail))
	}
	if res == nil || len(c.Expect.TestResults) == 0 {
		return errors.Join(errs...)
	}

	if len(res.Results) != len(c.Expect.TestResults) {
		errs = append(errs, fmt.Errorf("expected %d test results, got %d", len(c.Expect.TestResults), len(res.Results)))
	}
	for i := 0; i < min(len(res.Results), len(c.Expect.TestResults)); i++ {
		want := c.Expect.TestResults[i].Verdict
		got := res.Results[i].ResultType.String()
		if want != got {
			errs = append(errs, fmt.Errorf("test %d: expected %s, got %s", res.Results[i].ID, want, got))
		}
	}
	return errors.Join(errs...)
}
