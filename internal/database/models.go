package database

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/programme-lv/executor/api"
)

const (
	CheckerNameMinLength = 1
	CheckerNameMaxLength = 100
)

var ErrInvalidChecker = errors.New("invalid checker")

// Checker is a named, parameterised checker configuration that submissions
// refer to by Name.
type Checker struct {
	ID          int64
	Name        string
	Description string
	// ClassName selects the checker implementation, e.g. "TrimChecker".
	ClassName string
	Parameter string

	IsDeleted bool
	DeletedOn *time.Time
}

func (c *Checker) Validate() error {
	n := utf8.RuneCountInString(c.Name)
	if n < CheckerNameMinLength || n > CheckerNameMaxLength {
		return fmt.Errorf("%w: name must be %d to %d characters long", ErrInvalidChecker, CheckerNameMinLength, CheckerNameMaxLength)
	}
	if c.ClassName == "" {
		return fmt.Errorf("%w: class name is required", ErrInvalidChecker)
	}
	return nil
}

// TestRun is the persisted verdict of one test of one submission.
type TestRun struct {
	ID           int64
	SubmissionID string
	TestID       int

	TimeUsed   int
	MemoryUsed int64

	ResultType       api.TestRunResultType
	ExecutionComment string

	CheckerComment         string
	ExpectedOutputFragment string
	UserOutputFragment     string

	CreatedAt time.Time
}
