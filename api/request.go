package api

// ExecuteSubmissionRequest is the body of POST {root}/executeSubmission.
type ExecuteSubmissionRequest struct {
	ExecutionType     string `json:"executionType"`
	ExecutionStrategy string `json:"executionStrategy"`

	// FileContent is only sent when Code is empty.
	FileContent []byte `json:"fileContent,omitempty"`
	Code        string `json:"code"`

	TimeLimit   int `json:"timeLimit"`
	MemoryLimit int `json:"memoryLimit"`

	ExecutionDetails ExecutionDetails `json:"executionDetails"`
}

type ExecutionDetails struct {
	MaxPoints            int           `json:"maxPoints"`
	CheckerType          string        `json:"checkerType"`
	CheckerParameter     string        `json:"checkerParameter,omitempty"`
	Tests                []TestContext `json:"tests"`
	TaskSkeleton         []byte        `json:"taskSkeleton,omitempty"`
	TaskSkeletonAsString string        `json:"taskSkeletonAsString,omitempty"`
}

type TestContext struct {
	Id          int    `json:"id"`
	Input       string `json:"input"`
	Output      string `json:"output"`
	IsTrialTest bool   `json:"isTrialTest"`
	OrderBy     int    `json:"orderBy"`

	// Large tests may be referenced instead of inlined. The worker downloads
	// and verifies them before execution.
	InputUrl     *string `json:"inputUrl,omitempty"`
	InputSha256  *string `json:"inputSha256,omitempty"`
	OutputUrl    *string `json:"outputUrl,omitempty"`
	OutputSha256 *string `json:"outputSha256,omitempty"`
}

// QueueRequest wraps a submission delivered through a message queue.
type QueueRequest struct {
	EvalUuid  string                   `json:"eval_uuid"`
	ResSqsUrl string                   `json:"res_sqs_url,omitempty"`
	Request   ExecuteSubmissionRequest `json:"request"`
}
