package api

import (
	"fmt"
	"strings"
)

// ExecutionType tells the worker what kind of job a submission is.
type ExecutionType int

const (
	TestsExecution ExecutionType = iota
	NotApplicable
)

var executionTypeNames = map[ExecutionType]string{
	TestsExecution: "tests-execution",
	NotApplicable:  "not-applicable",
}

func (t ExecutionType) String() string {
	if s, ok := executionTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("execution-type(%d)", int(t))
}

func ParseExecutionType(s string) (ExecutionType, error) {
	for t, name := range executionTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown execution type %q", s)
}

// ExecutionStrategyType selects the procedure used to run a submission's tests.
type ExecutionStrategyType int

const (
	MySqlPrepareDatabaseAndRunQueries ExecutionStrategyType = iota + 1
	MySqlRunQueriesAndCheckDatabase
	MySqlRunSkeletonRunQueriesAndCheckDatabase
	SqlitePrepareDatabaseAndRunQueries
	SqliteRunQueriesAndCheckDatabase
	SqliteRunSkeletonRunQueriesAndCheckDatabase
)

var strategyNames = map[ExecutionStrategyType]string{
	MySqlPrepareDatabaseAndRunQueries:           "mysql-prepare-database-and-run-queries",
	MySqlRunQueriesAndCheckDatabase:             "mysql-run-queries-and-check-database",
	MySqlRunSkeletonRunQueriesAndCheckDatabase:  "mysql-run-skeleton-run-queries-and-check-database",
	SqlitePrepareDatabaseAndRunQueries:          "sqlite-prepare-database-and-run-queries",
	SqliteRunQueriesAndCheckDatabase:            "sqlite-run-queries-and-check-database",
	SqliteRunSkeletonRunQueriesAndCheckDatabase: "sqlite-run-skeleton-run-queries-and-check-database",
}

func (t ExecutionStrategyType) String() string {
	if s, ok := strategyNames[t]; ok {
		return s
	}
	return fmt.Sprintf("execution-strategy(%d)", int(t))
}

func ParseExecutionStrategyType(s string) (ExecutionStrategyType, error) {
	for t, name := range strategyNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown execution strategy %q", s)
}

// ExecutionStrategyTypes lists every strategy the protocol knows about.
func ExecutionStrategyTypes() []ExecutionStrategyType {
	return []ExecutionStrategyType{
		MySqlPrepareDatabaseAndRunQueries,
		MySqlRunQueriesAndCheckDatabase,
		MySqlRunSkeletonRunQueriesAndCheckDatabase,
		SqlitePrepareDatabaseAndRunQueries,
		SqliteRunQueriesAndCheckDatabase,
		SqliteRunSkeletonRunQueriesAndCheckDatabase,
	}
}

// TestRunResultType is the verdict of a single test. The wire form is the constant name.
type TestRunResultType int

const (
	CorrectAnswer TestRunResultType = iota
	WrongAnswer
	TimeLimit
	MemoryLimit
	RunTimeError
)

var resultTypeNames = []string{"CorrectAnswer", "WrongAnswer", "TimeLimit", "MemoryLimit", "RunTimeError"}

func (t TestRunResultType) String() string {
	if int(t) >= 0 && int(t) < len(resultTypeNames) {
		return resultTypeNames[t]
	}
	return fmt.Sprintf("TestRunResultType(%d)", int(t))
}

func ParseTestRunResultType(s string) (TestRunResultType, error) {
	for i, name := range resultTypeNames {
		if strings.EqualFold(name, s) {
			return TestRunResultType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown test run result type %q", s)
}

// CompilerType mirrors the compilers the grading platform knows about. SQL
// strategies never compile, so submissions for them carry None.
type CompilerType int

const (
	CompilerNone CompilerType = iota
	CompilerCSharp
	CompilerMsBuild
	CompilerCPlusPlusGcc
	CompilerJava
	CompilerJavaZip
	CompilerMsBuildLibrary
	CompilerCPlusPlusZip
	CompilerJavaInPlace
	CompilerDotNet
	CompilerCSharpDotNetCore
	CompilerSolidity
)

// FormatCheckerType turns a checker class or display name into its wire form:
// "TrimChecker", "Trim" and "trim" all become "trim"; "CaseInsensitiveChecker"
// becomes "case-insensitive".
func FormatCheckerType(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "Checker")

	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && name[i-1] != '-' {
				b.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
