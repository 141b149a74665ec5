package api

// RemoteSubmissionResult is the body returned by POST {root}/executeSubmission.
// Exactly one of Exception and ExecutionResult is set.
type RemoteSubmissionResult struct {
	Exception       *ExceptionModel          `json:"exception,omitempty"`
	ExecutionResult *ExecutionResultResponse `json:"executionResult,omitempty"`
}

type ExceptionModel struct {
	Message    string `json:"message"`
	StackTrace string `json:"stackTrace,omitempty"`
}

type ExecutionResultResponse struct {
	IsCompiledSuccessfully bool               `json:"isCompiledSuccessfully"`
	CompilerComment        string             `json:"compilerComment,omitempty"`
	TaskResult             TaskResultResponse `json:"taskResult"`
}

type TaskResultResponse struct {
	Points      int                  `json:"points"`
	TestResults []TestResultResponse `json:"testResults"`
}

type TestResultResponse struct {
	Id               int                    `json:"id"`
	ResultType       string                 `json:"resultType"`
	ExecutionComment string                 `json:"executionComment,omitempty"`
	TimeUsed         int                    `json:"timeUsed"`
	MemoryUsed       int64                  `json:"memoryUsed"`
	CheckerDetails   CheckerDetailsResponse `json:"checkerDetails"`
}

type CheckerDetailsResponse struct {
	Comment                string `json:"comment,omitempty"`
	ExpectedOutputFragment string `json:"expectedOutputFragment,omitempty"`
	UserOutputFragment     string `json:"userOutputFragment,omitempty"`
}
