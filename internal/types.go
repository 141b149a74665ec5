package internal

import "github.com/programme-lv/executor/api"

const (
	DefaultTimeLimitMillis  = 100
	DefaultMemoryLimitBytes = 16 * 1024 * 1024

	TestPassedMessage = "Test Passed!"
)

type Submission struct {
	ID string

	ExecutionType         api.ExecutionType
	ExecutionStrategyType api.ExecutionStrategyType
	CompilerType          api.CompilerType

	Code        string
	FileContent []byte

	// TimeLimit is in milliseconds, MemoryLimit in bytes.
	TimeLimit   int
	MemoryLimit int
	MaxPoints   int

	Input TestsInput
}

type TestsInput struct {
	CheckerTypeName  string
	CheckerParameter string

	Tests []TestContext

	TaskSkeleton         []byte
	TaskSkeletonAsString string
}

type TestContext struct {
	ID          int
	Input       string
	Output      string
	IsTrialTest bool
	OrderBy     int

	InputRef  *FileRef
	OutputRef *FileRef
}

// FileRef points at test content that has to be downloaded first.
type FileRef struct {
	URL    string
	Sha256 string
}

type CheckerDetails struct {
	Comment                string
	ExpectedOutputFragment string
	UserOutputFragment     string
}

type TestResult struct {
	ID          int
	Input       string
	IsTrialTest bool

	ResultType       api.TestRunResultType
	ExecutionComment string

	// TimeUsed is in milliseconds, MemoryUsed in bytes.
	TimeUsed   int
	MemoryUsed int64

	CheckerDetails CheckerDetails
}

type ExecutionResult struct {
	IsCompiledSuccessfully bool
	CompilerComment        string
	Results                []TestResult
}
