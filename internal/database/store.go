// Package database stores checker configurations and test run verdicts in
// SQLite.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/programme-lv/executor/api"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS checkers (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	class_name  TEXT NOT NULL,
	parameter   TEXT NOT NULL DEFAULT '',
	is_deleted  INTEGER NOT NULL DEFAULT 0,
	deleted_on  DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS checkers_name_live ON checkers(name) WHERE is_deleted = 0;

CREATE TABLE IF NOT EXISTS test_runs (
	id                       INTEGER PRIMARY KEY AUTOINCREMENT,
	submission_id            TEXT NOT NULL,
	test_id                  INTEGER NOT NULL,
	time_used                INTEGER NOT NULL,
	memory_used              INTEGER NOT NULL,
	result_type              INTEGER NOT NULL,
	execution_comment        TEXT NOT NULL DEFAULT '',
	checker_comment          TEXT NOT NULL DEFAULT '',
	expected_output_fragment TEXT NOT NULL DEFAULT '',
	user_output_fragment     TEXT NOT NULL DEFAULT '',
	created_at               DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS test_runs_submission ON test_runs(submission_id);
`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InsertChecker(ctx context.Context, c *Checker) error {
	if err := c.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO checkers (name, description, class_name, parameter) VALUES (?, ?, ?, ?)`,
		c.Name, c.Description, c.ClassName, c.Parameter)
	if err != nil {
		return fmt.Errorf("failed to insert checker %q: %w", c.Name, err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

const checkerColumns = `id, name, description, class_name, parameter, is_deleted, deleted_on`

func scanChecker(row interface{ Scan(...any) error }) (*Checker, error) {
	var c Checker
	var deletedOn sql.NullTime
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.ClassName, &c.Parameter, &c.IsDeleted, &deletedOn); err != nil {
		return nil, err
	}
	if deletedOn.Valid {
		c.DeletedOn = &deletedOn.Time
	}
	return &c, nil
}

func (s *Store) CheckerByName(ctx context.Context, name string) (*Checker, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+checkerColumns+` FROM checkers WHERE name = ? AND is_deleted = 0`, name)
	c, err := scanChecker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checker %q: %w", name, ErrNotFound)
	}
	return c, err
}

// ResolveChecker lets the store act as the tester's checker catalog.
func (s *Store) ResolveChecker(ctx context.Context, name string) (string, string, bool, error) {
	c, err := s.CheckerByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return c.ClassName, c.Parameter, true, nil
}

func (s *Store) ListCheckers(ctx context.Context) ([]Checker, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+checkerColumns+` FROM checkers WHERE is_deleted = 0 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Checker
	for rows.Next() {
		c, err := scanChecker(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *c)
	}
	return res, rows.Err()
}

// DeleteChecker marks the checker deleted; its name becomes free again.
func (s *Store) DeleteChecker(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE checkers SET is_deleted = 1, deleted_on = ? WHERE id = ? AND is_deleted = 0`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("checker %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) InsertTestRun(ctx context.Context, r *TestRun) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO test_runs (submission_id, test_id, time_used, memory_used, result_type,
	execution_comment, checker_comment, expected_output_fragment, user_output_fragment, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SubmissionID, r.TestID, r.TimeUsed, r.MemoryUsed, int(r.ResultType),
		r.ExecutionComment, r.CheckerComment, r.ExpectedOutputFragment, r.UserOutputFragment, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert test run: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

func (s *Store) TestRunsBySubmission(ctx context.Context, submissionID string) ([]TestRun, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, submission_id, test_id, time_used, memory_used, result_type, execution_comment,
	checker_comment, expected_output_fragment, user_output_fragment, created_at
FROM test_runs WHERE submission_id = ? ORDER BY id`, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []TestRun
	for rows.Next() {
		var r TestRun
		var resultType int
		if err := rows.Scan(&r.ID, &r.SubmissionID, &r.TestID, &r.TimeUsed, &r.MemoryUsed, &resultType,
			&r.ExecutionComment, &r.CheckerComment, &r.ExpectedOutputFragment, &r.UserOutputFragment, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.ResultType = api.TestRunResultType(resultType)
		res = append(res, r)
	}
	return res, rows.Err()
}
