package sqlexec

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/programme-lv/executor/internal"
)

// PrepareDatabaseAndRunQueries runs the test input as a setup script and the
// submission as the query whose rows are judged.
func PrepareDatabaseAndRunQueries(ctx context.Context, s *Strategy, db *sql.DB, sub *internal.Submission, test internal.TestContext, res *internal.ExecutionResult) error {
	completed, err := s.ExecuteNonQuery(ctx, db, test.Input, DefaultTimeLimit)
	if err != nil {
		return fmt.Errorf("test %d setup failed: %w", test.ID, err)
	}
	if !completed {
		return fmt.Errorf("test %d setup did not finish in %s", test.ID, DefaultTimeLimit)
	}

	sqlResult, err := s.ExecuteReader(ctx, db, sub.Code, submissionTimeLimit(sub))
	if err != nil {
		return err
	}
	return s.ProcessSqlResult(sqlResult, sub, test, res)
}

// RunQueriesAndCheckDatabase runs the submission against an empty database
// and then judges the rows of the test input query.
func RunQueriesAndCheckDatabase(ctx context.Context, s *Strategy, db *sql.DB, sub *internal.Submission, test internal.TestContext, res *internal.ExecutionResult) error {
	completed, err := s.ExecuteNonQuery(ctx, db, sub.Code, submissionTimeLimit(sub))
	if err != nil {
		return err
	}
	if !completed {
		res.Results = append(res.Results, TimeLimitResult(sub, test))
		return nil
	}

	sqlResult, err := s.ExecuteReader(ctx, db, test.Input, DefaultTimeLimit)
	if err != nil {
		return fmt.Errorf("test %d check query failed: %w", test.ID, err)
	}
	return s.ProcessSqlResult(sqlResult, sub, test, res)
}

// RunSkeletonRunQueriesAndCheckDatabase loads the task skeleton before
// continuing as RunQueriesAndCheckDatabase.
func RunSkeletonRunQueriesAndCheckDatabase(ctx context.Context, s *Strategy, db *sql.DB, sub *internal.Submission, test internal.TestContext, res *internal.ExecutionResult) error {
	if sub.Input.TaskSkeletonAsString != "" {
		completed, err := s.ExecuteNonQuery(ctx, db, sub.Input.TaskSkeletonAsString, DefaultTimeLimit)
		if err != nil {
			return fmt.Errorf("task skeleton failed: %w", err)
		}
		if !completed {
			return fmt.Errorf("task skeleton did not finish in %s", DefaultTimeLimit)
		}
	}
	return RunQueriesAndCheckDatabase(ctx, s, db, sub, test, res)
}
