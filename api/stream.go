package api

import "time"

// MsgType is a message type for streaming responses
type MsgType string

const (
	StartJobMsg   MsgType = "job_start"
	ReachTestMsg  MsgType = "test_reach"
	FinishTestMsg MsgType = "test_finish"
	FinishJobMsg  MsgType = "job_finish"
)

// Fragment size limits for streamed test data
const (
	MaxFragmentHeight = 40
	MaxFragmentWidth  = 80
)

// Header is the common header for all streaming response messages
type Header struct {
	EvalUuid string  `json:"eval_uuid"`
	MsgType  MsgType `json:"msg_type"`
}

type StartJob struct {
	Header
	SystemInfo  string `json:"system_info"`
	Strategy    string `json:"strategy"`
	StartedTime string `json:"started_time"`
}

type ReachTest struct {
	Header
	TestId int     `json:"test_id"`
	Input  *string `json:"input"`
}

type FinishTest struct {
	Header
	Result TestResultResponse `json:"result"`
}

type FinishJob struct {
	Header
	ErrorMessage  *string `json:"error_message"`
	CompileError  bool    `json:"compile_error"`
	InternalError bool    `json:"internal_error"`
}

func NewHeader(evalUuid string, msgType MsgType) Header {
	return Header{
		EvalUuid: evalUuid,
		MsgType:  msgType,
	}
}

func NewStartJob(evalUuid, systemInfo, strategy string) StartJob {
	return StartJob{
		Header:      NewHeader(evalUuid, StartJobMsg),
		SystemInfo:  systemInfo,
		Strategy:    strategy,
		StartedTime: time.Now().Format(time.RFC3339),
	}
}

func NewReachTest(evalUuid string, testId int, input *string) ReachTest {
	return ReachTest{
		Header: NewHeader(evalUuid, ReachTestMsg),
		TestId: testId,
		Input:  input,
	}
}

func NewFinishTest(evalUuid string, result TestResultResponse) FinishTest {
	return FinishTest{
		Header: NewHeader(evalUuid, FinishTestMsg),
		Result: result,
	}
}

func NewFinishJob(evalUuid string, errorMessage *string, compileError, internalError bool) FinishJob {
	return FinishJob{
		Header:        NewHeader(evalUuid, FinishJobMsg),
		ErrorMessage:  errorMessage,
		CompileError:  compileError,
		InternalError: internalError,
	}
}
