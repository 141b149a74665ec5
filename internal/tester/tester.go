// Package tester validates submissions and dispatches them to the execution
// strategy they ask for.
package tester

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal"
	"github.com/programme-lv/executor/internal/checkers"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownStrategy      = errors.New("unknown execution strategy")
	ErrNotApplicable        = errors.New("execution type is not applicable")
	ErrDuplicateTestID      = errors.New("duplicate test id")
	ErrUnknownChecker       = errors.New("unknown checker")
	ErrNoTests              = errors.New("submission has no tests")
	ErrMissingTestFileStore = errors.New("test files are referenced but no file store is configured")
)

// Executor runs all tests of a submission. Implementations report failures
// through the returned result rather than an error.
type Executor interface {
	Execute(ctx context.Context, sub *internal.Submission, gath internal.ResultGatherer) *internal.ExecutionResult
}

// FileStore resolves test files referenced by URL.
type FileStore interface {
	Schedule(key string, url string) error
	AwaitContext(ctx context.Context, key string) ([]byte, error)
}

// CheckerCatalog maps stored checker names to their implementation and
// default parameter.
type CheckerCatalog interface {
	ResolveChecker(ctx context.Context, name string) (className string, parameter string, ok bool, err error)
}

type Tester struct {
	strategies map[api.ExecutionStrategyType]Executor
	files      FileStore
	catalog    CheckerCatalog
	systemInfo string
	logger     *slog.Logger
}

type Option func(*Tester)

func WithFileStore(fs FileStore) Option {
	return func(t *Tester) { t.files = fs }
}

func WithCheckerCatalog(c CheckerCatalog) Option {
	return func(t *Tester) { t.catalog = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Tester) { t.logger = l }
}

func NewTester(opts ...Option) *Tester {
	t := &Tester{
		strategies: make(map[api.ExecutionStrategyType]Executor),
		systemInfo: getSystemInfo(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tester) Register(kind api.ExecutionStrategyType, exec Executor) {
	t.strategies[kind] = exec
}

// Strategies lists the registered strategy types in protocol order.
func (t *Tester) Strategies() []api.ExecutionStrategyType {
	var res []api.ExecutionStrategyType
	for _, kind := range api.ExecutionStrategyTypes() {
		if _, ok := t.strategies[kind]; ok {
			res = append(res, kind)
		}
	}
	return res
}

func (t *Tester) SystemInfo() string {
	return t.systemInfo
}

// ExecuteSubmission validates sub, fetches its referenced test files and
// runs it. A returned error means the submission never reached a strategy;
// the gatherer has then been told about an internal error.
func (t *Tester) ExecuteSubmission(ctx context.Context, sub *internal.Submission, gath internal.ResultGatherer) (*internal.ExecutionResult, error) {
	if gath == nil {
		gath = internal.NopGatherer{}
	}
	logger := t.logger.With("submission", sub.ID, "strategy", sub.ExecutionStrategyType.String())
	gath.StartJob(t.systemInfo, sub)

	fail := func(err error) (*internal.ExecutionResult, error) {
		logger.Warn("submission rejected", "error", err)
		gath.InternalError(err.Error())
		return nil, err
	}

	exec, err := t.validate(ctx, sub)
	if err != nil {
		return fail(err)
	}
	if err := t.resolveTestFiles(ctx, sub); err != nil {
		return fail(err)
	}

	slices.SortStableFunc(sub.Input.Tests, func(a, b internal.TestContext) int {
		return cmp.Compare(a.OrderBy, b.OrderBy)
	})

	logger.Info("executing submission", "tests", len(sub.Input.Tests))
	res := exec.Execute(ctx, sub, gath)

	if !res.IsCompiledSuccessfully {
		gath.CompileError(res.CompilerComment)
	} else {
		gath.FinishNoError()
	}
	return res, nil
}

func (t *Tester) validate(ctx context.Context, sub *internal.Submission) (Executor, error) {
	if sub.ExecutionType != api.TestsExecution {
		return nil, fmt.Errorf("%w: %s", ErrNotApplicable, sub.ExecutionType)
	}
	exec, ok := t.strategies[sub.ExecutionStrategyType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, sub.ExecutionStrategyType)
	}
	if len(sub.Input.Tests) == 0 {
		return nil, ErrNoTests
	}

	if sub.TimeLimit <= 0 {
		sub.TimeLimit = internal.DefaultTimeLimitMillis
	}
	if sub.MemoryLimit <= 0 {
		sub.MemoryLimit = internal.DefaultMemoryLimitBytes
	}
	if sub.Code == "" && len(sub.FileContent) > 0 {
		sub.Code = string(sub.FileContent)
	}

	ids := mapset.NewThreadUnsafeSet[int]()
	for _, test := range sub.Input.Tests {
		if !ids.Add(test.ID) {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateTestID, test.ID)
		}
	}

	if t.catalog != nil && sub.Input.CheckerTypeName != "" {
		className, parameter, found, err := t.catalog.ResolveChecker(ctx, sub.Input.CheckerTypeName)
		if err != nil {
			return nil, fmt.Errorf("failed to look up checker: %w", err)
		}
		if found {
			sub.Input.CheckerTypeName = className
			if sub.Input.CheckerParameter == "" {
				sub.Input.CheckerParameter = parameter
			}
		}
	}
	if _, err := checkers.New(sub.Input.CheckerTypeName, sub.Input.CheckerParameter); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownChecker, err)
	}

	return exec, nil
}

// resolveTestFiles replaces file references with their content. Downloads
// run in parallel; the first failure cancels the rest.
func (t *Tester) resolveTestFiles(ctx context.Context, sub *internal.Submission) error {
	var refs []*internal.FileRef
	for _, test := range sub.Input.Tests {
		if test.InputRef != nil {
			refs = append(refs, test.InputRef)
		}
		if test.OutputRef != nil {
			refs = append(refs, test.OutputRef)
		}
	}
	if len(refs) == 0 {
		return nil
	}
	if t.files == nil {
		return ErrMissingTestFileStore
	}

	for _, ref := range refs {
		if err := t.files.Schedule(ref.Sha256, ref.URL); err != nil {
			return fmt.Errorf("failed to schedule file for download: %w", err)
		}
	}

	tests := sub.Input.Tests
	g, gctx := errgroup.WithContext(ctx)
	for i := range tests {
		test := &tests[i]
		if test.InputRef != nil {
			g.Go(func() error {
				data, err := t.files.AwaitContext(gctx, test.InputRef.Sha256)
				if err != nil {
					return fmt.Errorf("failed to get input of test %d: %w", test.ID, err)
				}
				test.Input = string(data)
				return nil
			})
		}
		if test.OutputRef != nil {
			g.Go(func() error {
				data, err := t.files.AwaitContext(gctx, test.OutputRef.Sha256)
				if err != nil {
					return fmt.Errorf("failed to get output of test %d: %w", test.ID, err)
				}
				test.Output = string(data)
				return nil
			})
		}
	}
	return g.Wait()
}

func getSystemInfo() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "host: %s\n", host)
	fmt.Fprintf(&b, "os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "cpus: %d\n", runtime.NumCPU())
	fmt.Fprintf(&b, "go: %s", runtime.Version())
	return b.String()
}
