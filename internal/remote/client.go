// Package remote submits work to an executor endpoint over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/programme-lv/executor/api"
	"github.com/programme-lv/executor/internal"
)

// ErrRemoteExecution wraps the message of an exception reported by the
// executor.
var ErrRemoteExecution = errors.New("remote execution failed")

type Client struct {
	location string
	endpoint string

	http   *http.Client
	gzip   bool
	logger *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithGzip compresses request bodies.
func WithGzip() Option {
	return func(cl *Client) { cl.gzip = true }
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func NewClient(endpointRoot string, opts ...Option) *Client {
	root := strings.TrimRight(endpointRoot, "/")
	c := &Client{
		location: root,
		endpoint: root + "/executeSubmission?keepDetails=true&escapeTests=false",
		http:     &http.Client{Timeout: 10 * time.Minute},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Location() string {
	return c.location
}

// RunSubmission executes sub remotely and maps the returned verdicts back to
// the submitted tests.
func (c *Client) RunSubmission(ctx context.Context, sub *internal.Submission) (*internal.ExecutionResult, error) {
	body, err := json.Marshal(BuildRequestBody(sub))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post submission to %s: %w", c.location, err)
	}
	defer resp.Body.Close()

	var result api.RemoteSubmissionResult
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)
	c.logger.Debug("remote execution finished", "location", c.location, "status", resp.StatusCode, "took", time.Since(start))

	if decodeErr == nil && result.Exception != nil {
		return nil, fmt.Errorf("%w: %s", ErrRemoteExecution, result.Exception.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("executor at %s responded with %s", c.location, resp.Status)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if result.ExecutionResult == nil {
		return nil, fmt.Errorf("%w: response carries neither result nor exception", ErrRemoteExecution)
	}

	return mapResult(sub, result.ExecutionResult)
}

func (c *Client) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	var reader io.Reader = bytes.NewReader(body)
	if c.gzip {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		reader = &buf
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}
	return req, nil
}

// BuildRequestBody maps a submission to its wire form. FileContent is only
// sent when there is no code.
func BuildRequestBody(sub *internal.Submission) api.ExecuteSubmissionRequest {
	req := api.ExecuteSubmissionRequest{
		ExecutionType:     sub.ExecutionType.String(),
		ExecutionStrategy: sub.ExecutionStrategyType.String(),
		Code:              sub.Code,
		TimeLimit:         sub.TimeLimit,
		MemoryLimit:       sub.MemoryLimit,
		ExecutionDetails: api.ExecutionDetails{
			MaxPoints:            sub.MaxPoints,
			CheckerType:          api.FormatCheckerType(sub.Input.CheckerTypeName),
			CheckerParameter:     sub.Input.CheckerParameter,
			TaskSkeleton:         sub.Input.TaskSkeleton,
			TaskSkeletonAsString: sub.Input.TaskSkeletonAsString,
			Tests:                make([]api.TestContext, 0, len(sub.Input.Tests)),
		},
	}
	if sub.Code == "" {
		req.FileContent = sub.FileContent
	}

	for _, t := range sub.Input.Tests {
		tc := api.TestContext{
			Id:          t.ID,
			Input:       t.Input,
			Output:      t.Output,
			IsTrialTest: t.IsTrialTest,
			OrderBy:     t.OrderBy,
		}
		if t.InputRef != nil {
			tc.InputUrl, tc.InputSha256 = &t.InputRef.URL, &t.InputRef.Sha256
		}
		if t.OutputRef != nil {
			tc.OutputUrl, tc.OutputSha256 = &t.OutputRef.URL, &t.OutputRef.Sha256
		}
		req.ExecutionDetails.Tests = append(req.ExecutionDetails.Tests, tc)
	}
	return req
}

func mapResult(sub *internal.Submission, res *api.ExecutionResultResponse) (*internal.ExecutionResult, error) {
	tests := make(map[int]internal.TestContext, len(sub.Input.Tests))
	for _, t := range sub.Input.Tests {
		tests[t.ID] = t
	}

	out := &internal.ExecutionResult{
		IsCompiledSuccessfully: res.IsCompiledSuccessfully,
		CompilerComment:        res.CompilerComment,
	}
	seen := mapset.NewThreadUnsafeSet[int]()
	for _, tr := range res.TaskResult.TestResults {
		test, ok := tests[tr.Id]
		if !ok {
			return nil, fmt.Errorf("result for unknown test %d", tr.Id)
		}
		if !seen.Add(tr.Id) {
			return nil, fmt.Errorf("duplicate result for test %d", tr.Id)
		}
		resultType, err := api.ParseTestRunResultType(tr.ResultType)
		if err != nil {
			return nil, fmt.Errorf("test %d: %w", tr.Id, err)
		}
		out.Results = append(out.Results, internal.TestResult{
			ID:               test.ID,
			Input:            test.Input,
			IsTrialTest:      test.IsTrialTest,
			ResultType:       resultType,
			ExecutionComment: tr.ExecutionComment,
			TimeUsed:         tr.TimeUsed,
			MemoryUsed:       tr.MemoryUsed,
			CheckerDetails: internal.CheckerDetails{
				Comment:                tr.CheckerDetails.Comment,
				ExpectedOutputFragment: tr.CheckerDetails.ExpectedOutputFragment,
				UserOutputFragment:     tr.CheckerDetails.UserOutputFragment,
			},
		})
	}
	return out, nil
}
