package internal

import (
	"fmt"

	"github.com/programme-lv/executor/api"
)

// SubmissionFromRequest parses the wire request. Limits that are not set
// fall back to DefaultTimeLimitMillis and DefaultMemoryLimitBytes.
func SubmissionFromRequest(id string, req api.ExecuteSubmissionRequest) (*Submission, error) {
	execType, err := api.ParseExecutionType(req.ExecutionType)
	if err != nil {
		return nil, err
	}
	strategy, err := api.ParseExecutionStrategyType(req.ExecutionStrategy)
	if err != nil {
		return nil, err
	}

	sub := &Submission{
		ID:                    id,
		ExecutionType:         execType,
		ExecutionStrategyType: strategy,
		Code:                  req.Code,
		FileContent:           req.FileContent,
		TimeLimit:             req.TimeLimit,
		MemoryLimit:           req.MemoryLimit,
		MaxPoints:             req.ExecutionDetails.MaxPoints,
		Input: TestsInput{
			CheckerTypeName:      req.ExecutionDetails.CheckerType,
			CheckerParameter:     req.ExecutionDetails.CheckerParameter,
			TaskSkeleton:         req.ExecutionDetails.TaskSkeleton,
			TaskSkeletonAsString: req.ExecutionDetails.TaskSkeletonAsString,
		},
	}
	if sub.TimeLimit <= 0 {
		sub.TimeLimit = DefaultTimeLimitMillis
	}
	if sub.MemoryLimit <= 0 {
		sub.MemoryLimit = DefaultMemoryLimitBytes
	}
	if sub.Input.TaskSkeletonAsString == "" && len(sub.Input.TaskSkeleton) > 0 {
		sub.Input.TaskSkeletonAsString = string(sub.Input.TaskSkeleton)
	}

	for _, t := range req.ExecutionDetails.Tests {
		tc := TestContext{
			ID:          t.Id,
			Input:       t.Input,
			Output:      t.Output,
			IsTrialTest: t.IsTrialTest,
			OrderBy:     t.OrderBy,
		}
		if t.InputUrl != nil {
			if t.InputSha256 == nil {
				return nil, fmt.Errorf("test %d: input url without sha256", t.Id)
			}
			tc.InputRef = &FileRef{URL: *t.InputUrl, Sha256: *t.InputSha256}
		}
		if t.OutputUrl != nil {
			if t.OutputSha256 == nil {
				return nil, fmt.Errorf("test %d: output url without sha256", t.Id)
			}
			tc.OutputRef = &FileRef{URL: *t.OutputUrl, Sha256: *t.OutputSha256}
		}
		sub.Input.Tests = append(sub.Input.Tests, tc)
	}

	return sub, nil
}

// Response maps a test result to its wire form. Without keepDetails the
// output fragments are dropped and only the checker comment stays.
func (r TestResult) Response(keepDetails bool) api.TestResultResponse {
	resp := api.TestResultResponse{
		Id:               r.ID,
		ResultType:       r.ResultType.String(),
		ExecutionComment: r.ExecutionComment,
		TimeUsed:         r.TimeUsed,
		MemoryUsed:       r.MemoryUsed,
		CheckerDetails: api.CheckerDetailsResponse{
			Comment: r.CheckerDetails.Comment,
		},
	}
	if keepDetails {
		resp.CheckerDetails.ExpectedOutputFragment = r.CheckerDetails.ExpectedOutputFragment
		resp.CheckerDetails.UserOutputFragment = r.CheckerDetails.UserOutputFragment
	}
	return resp
}
