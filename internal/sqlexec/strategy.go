// Package sqlexec runs SQL submissions test by test, each against its own
// freshly provisioned scratch database.
package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal"
	"github.com/programme-lv/executor/internal/checkers"
)

// DefaultTimeLimit bounds statements that are not user code: test scripts,
// skeletons and provisioning.
const DefaultTimeLimit = 2 * time.Minute

// Provisioner creates and destroys scratch databases for one SQL dialect.
type Provisioner interface {
	// OpenScratch creates the database and returns a connection to it as the
	// restricted user.
	OpenScratch(ctx context.Context, name string) (*sql.DB, error)
	DropScratch(ctx context.Context, name string) error
	Dialect
}

// Dialect lets a provisioner adjust command text and field formatting.
type Dialect interface {
	FixCommandText(text string) string
	// FormatField returns ok=false to fall back to the generic formatting.
	FormatField(col *sql.ColumnType, v any) (s string, ok bool)
}

// StatementSplitter is implemented by dialects whose driver returns a single
// result set per query. ExecuteReader then runs the statements one at a time.
type StatementSplitter interface {
	SplitStatements(text string) []string
}

// Flow is the per-test body of a strategy, run against an open scratch
// database.
type Flow func(ctx context.Context, s *Strategy, db *sql.DB, sub *internal.Submission, test internal.TestContext, res *internal.ExecutionResult) error

type SqlResult struct {
	Completed bool
	Results   []string
}

// Strategy is a SQL execution strategy: a provisioner plus a flow.
type Strategy struct {
	prov   Provisioner
	flow   Flow
	logger *slog.Logger

	// NewDatabaseName is replaceable for tests.
	NewDatabaseName func() string
}

func NewStrategy(prov Provisioner, flow Flow, logger *slog.Logger) *Strategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Strategy{
		prov:            prov,
		flow:            flow,
		logger:          logger,
		NewDatabaseName: func() string { return uuid.NewString() },
	}
}

// Execute runs every test of the submission. It never fails: errors end the
// loop and are reported through CompilerComment, and the scratch database in
// progress is dropped.
func (s *Strategy) Execute(ctx context.Context, sub *internal.Submission, gath internal.ResultGatherer) *internal.ExecutionResult {
	if gath == nil {
		gath = internal.NopGatherer{}
	}
	res := &internal.ExecutionResult{IsCompiledSuccessfully: true}

	var dbName string
	err := func() error {
		for _, test := range sub.Input.Tests {
			gath.ReachTest(test)
			dbName = s.NewDatabaseName()

			before := len(res.Results)
			if err := s.runTest(ctx, dbName, sub, test, res); err != nil {
				return err
			}
			for _, r := range res.Results[before:] {
				gath.FinishTest(r)
			}

			if err := s.prov.DropScratch(ctx, dbName); err != nil {
				return fmt.Errorf("failed to drop database %s: %w", dbName, err)
			}
			dbName = ""
		}
		return nil
	}()

	if err != nil {
		s.logger.Warn("sql execution aborted", "submission", sub.ID, "error", err)
		if strings.TrimSpace(dbName) != "" {
			// the caller's context may be the reason we are here
			dropCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTimeLimit)
			if dropErr := s.prov.DropScratch(dropCtx, dbName); dropErr != nil {
				s.logger.Error("failed to drop scratch database", "database", dbName, "error", dropErr)
			}
			cancel()
		}
		res.IsCompiledSuccessfully = false
		res.CompilerComment = err.Error()
	}

	return res
}

func (s *Strategy) runTest(ctx context.Context, dbName string, sub *internal.Submission, test internal.TestContext, res *internal.ExecutionResult) error {
	db, err := s.prov.OpenScratch(ctx, dbName)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			s.logger.Warn("failed to close scratch connection", "database", dbName, "error", err)
		}
	}()

	return s.flow(ctx, s, db, sub, test, res)
}

// ExecuteNonQuery runs commandText and reports whether it finished within
// timeLimit. Errors raised by the statement itself are returned.
func (s *Strategy) ExecuteNonQuery(ctx context.Context, db *sql.DB, commandText string, timeLimit time.Duration) (bool, error) {
	return ExecuteNonQuery(ctx, s.prov, db, commandText, timeLimit)
}

func ExecuteNonQuery(ctx context.Context, d Dialect, db *sql.DB, commandText string, timeLimit time.Duration) (bool, error) {
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	tctx, cancel := context.WithTimeout(ctx, timeLimit)
	defer cancel()

	_, err := db.ExecContext(tctx, d.FixCommandText(commandText))
	if timedOut(ctx, tctx) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ExecuteReader collects every field of every row of every result set.
func (s *Strategy) ExecuteReader(ctx context.Context, db *sql.DB, commandText string, timeLimit time.Duration) (*SqlResult, error) {
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	tctx, cancel := context.WithTimeout(ctx, timeLimit)
	defer cancel()

	statements := []string{commandText}
	if sp, ok := s.prov.(StatementSplitter); ok {
		statements = sp.SplitStatements(commandText)
	}

	res := &SqlResult{}
	for _, stmt := range statements {
		completed, err := s.readStatement(ctx, tctx, db, stmt, res)
		if err != nil {
			return nil, err
		}
		if !completed {
			return res, nil
		}
	}

	res.Completed = true
	return res, nil
}

// readStatement appends the fields of every result set stmt produces.
func (s *Strategy) readStatement(ctx, tctx context.Context, db *sql.DB, stmt string, res *SqlResult) (bool, error) {
	rows, err := db.QueryContext(tctx, stmt)
	if timedOut(ctx, tctx) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for {
		cols, err := rows.ColumnTypes()
		if err != nil {
			if timedOut(ctx, tctx) {
				return false, nil
			}
			return false, err
		}
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}

		for rows.Next() {
			if err := rows.Scan(dest...); err != nil {
				return false, err
			}
			for i, col := range cols {
				res.Results = append(res.Results, s.FieldValue(col, values[i]))
			}
		}
		if !rows.NextResultSet() {
			break
		}
	}

	if timedOut(ctx, tctx) {
		return false, nil
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	return true, nil
}

// timedOut reports whether the statement deadline fired while the parent
// context is still alive.
func timedOut(parent, stmt context.Context) bool {
	return parent.Err() == nil && errors.Is(stmt.Err(), context.DeadlineExceeded)
}

// FieldValue formats a scanned value the way checkers expect to see it.
func (s *Strategy) FieldValue(col *sql.ColumnType, v any) string {
	if v == nil {
		return ""
	}
	if str, ok := s.prov.FormatField(col, v); ok {
		return str
	}
	return FormatValue(col, v)
}

// ProcessSqlResult judges a reader result and appends the test verdict.
func (s *Strategy) ProcessSqlResult(sqlResult *SqlResult, sub *internal.Submission, test internal.TestContext, res *internal.ExecutionResult) error {
	if !sqlResult.Completed {
		res.Results = append(res.Results, TimeLimitResult(sub, test))
		return nil
	}

	checker, err := checkers.New(sub.Input.CheckerTypeName, sub.Input.CheckerParameter)
	if err != nil {
		return err
	}

	joinedUserOutput := strings.Join(sqlResult.Results, "\n")
	chk := checker.Check(test.Input, joinedUserOutput, test.Output, test.IsTrialTest)

	resultType := api.WrongAnswer
	if chk.IsCorrect {
		resultType = api.CorrectAnswer
	}
	res.Results = append(res.Results, internal.TestResult{
		ID:             test.ID,
		Input:          test.Input,
		IsTrialTest:    test.IsTrialTest,
		ResultType:     resultType,
		CheckerDetails: chk.Details,
	})
	return nil
}

func TimeLimitResult(sub *internal.Submission, test internal.TestContext) internal.TestResult {
	return internal.TestResult{
		ID:          test.ID,
		Input:       test.Input,
		IsTrialTest: test.IsTrialTest,
		ResultType:  api.TimeLimit,
		TimeUsed:    sub.TimeLimit,
	}
}

func submissionTimeLimit(sub *internal.Submission) time.Duration {
	return time.Duration(sub.TimeLimit) * time.Millisecond
}
